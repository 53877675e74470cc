package trackname

import (
	"regexp"
	"strings"
)

// RemoveArtist strips "Artist - " from the front or " - Artist" from the end
// of title, ignoring case. The title is returned unchanged when artist is
// empty or removing it would leave nothing.
func RemoveArtist(title, artist string) string {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return title
	}

	quoted := regexp.QuoteMeta(artist)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*` + quoted + `\s*[-–—]\s*`),
		regexp.MustCompile(`(?i)\s*[-–—]\s*` + quoted + `\s*$`),
	}

	result := title
	for _, re := range patterns {
		next := strings.TrimSpace(re.ReplaceAllString(result, ""))
		if next != "" && len(next) < len(result) {
			result = next
		}
	}
	return result
}

// Variant is one (title, artist) pair to try against a lyrics database.
type Variant struct {
	Title  string
	Artist string
}

// Cleaned returns the cleaned title with the artist removed, or ok=false
// when cleaning changes nothing.
func Cleaned(title, artist string) (Variant, bool) {
	c := RemoveArtist(Clean(title), artist)
	if c == "" || c == title {
		return Variant{}, false
	}
	return Variant{Title: c, Artist: artist}, true
}
