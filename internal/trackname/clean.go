// Package trackname turns decorated player or video titles into the song
// title a lyrics database knows about.
package trackname

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	cornerQuoteRe    = regexp.MustCompile(`「([^」]+)」`)
	whiteCornerRe    = regexp.MustCompile(`『([^』]+)』`)
	lenticularPairRe = regexp.MustCompile(`【[^】]*】([^【】]+)【[^】]*】`)
	lenticularRe     = regexp.MustCompile(`【([^】]+)】`)
	trailingSepRe    = regexp.MustCompile(`[\-/｜／|:：‐‑‒–—―]+.*$`)
	lenticularSkipRe = regexp.MustCompile(`(?i)cover|mv|video|official`)

	featArtistRe = regexp.MustCompile(`(?i)^[^-]*\s+(?:feat|ft)\.?\s+[^-]*\s+-\s+(.+)$`)
	dashSplitRe  = regexp.MustCompile(`^(.+?)\s+[-–—]\s+(.+)$`)
	dotSplitRe   = regexp.MustCompile(`^([^·]+?)\s*·\s*(.+)$`)
	crossSplitRe = regexp.MustCompile(`^([^×]+?)\s*×\s*(.+)$`)

	spaceRe = regexp.MustCompile(`\s+`)
)

// noise is removed in order. A removal that would leave fewer than two
// characters is skipped.
var noise = compileAll(
	`\s*-\s*YouTube\s*Music\s*$`,
	`\s*-\s*YouTube\s*$`,
	`\s*\([^)]*(?:official|music|lyric)[^)]*(?:video|audio)[^)]*\)`,
	`\s*【[^】]*(?:official|music|lyric)[^】]*(?:video|audio)[^】]*】`,
	`\s*\[[^\]]*(?:official|music|lyric)[^\]]*(?:video|audio)[^\]]*\]`,
	`\s*\([^)]*\bmv\b[^)]*\)`,
	`\s*【[^】]*mv[^】]*】`,
	`\s*\[[^\]]*\bmv\b[^\]]*\]`,
	`\.(?:flv|mp4|avi|mov|wmv|mkv|webm|mp3|m4a|wav|flac|ogg)$`,
	`\s*\[[^\]]*playlist[^\]]*\]`,
	`\s*\([^)]*(?:中文|日本語|한국어|english\s+sub|eng\s+sub|subtitle|lyrics?|chinese|中字版|官方)[^)]*\)`,
	`\s*【[^】]*(?:中文|日本語|한국어|english\s+sub|lyrics?)[^】]*】`,
	`\s*\[[^\]]*\b(?:4k|hd|remaster(?:ed)?)\b[^\]]*\]`,
	`\s*\([^)]*\b4k\b[^)]*\)`,
	`\s*\((?:feat|ft|featuring)\.?\s+[^)]*\)`,
	`\s+(?:feat|ft)\.?\s+@?[^()]*$`,
	`\s*\(prod\.?\s*[^)]*\)`,
	`\s*\((?:visualizer|video|audio|acoustic\s+video)\)`,
	`\s*\((?:twin\s+ver\.?|version|demo|remix|stripped|original|piano\s+version|acoustic\s+session|session)\)`,
	`\s*\(live\s+at\s+[^)]+\)`,
	`\s*/\s*\d{4}\s*$`,
)

// tail is removed after the artist split.
var tail = compileAll(
	`\s*（[^）]*(?:video|mv)[^）]*）`,
	`\s*【[^】]*】`,
	`\s*\[[^\]]*\]\s*$`,
	`\s+ft\.?\s*[^(),\-\s][^(),\-]*$`,
	`\s+\(acoustic\)$`,
	`\s+official\s+video\s*$`,
)

var fullWidthParenRe = regexp.MustCompile(`\s*（[^）]*）`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Clean extracts the song title from a decorated title such as
// "Artist - Song (Official Video) - YouTube Music" or "【MV】曲名【Official】".
// The result is never empty when title has non-space content.
func Clean(title string) string {
	if t, ok := quoted(title); ok {
		return t
	}

	s := strings.TrimSpace(title)
	if m := featArtistRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	s = removeAll(s, noise, 1)

	// "Song / Artist"
	if strings.Contains(s, " / ") && !hasFeat(s) {
		if parts := strings.Split(s, " / "); len(parts) == 2 {
			s = keepIfLonger(s, parts[0], 2)
		}
	}

	s = splitArtist(s)
	s = removeAll(s, tail, 1)

	if i := strings.Index(s, " | "); i >= 0 {
		s = keepIfLonger(s, s[:i], 2)
	}
	if i := strings.Index(s, "／"); i >= 0 {
		s = keepIfLonger(s, s[:i], 2)
	}
	s = unquote(s)
	s = removeAll(s, []*regexp.Regexp{fullWidthParenRe}, 3)

	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s == "" {
		if t := strings.TrimSpace(title); t != "" {
			return t
		}
		return title
	}
	return s
}

// quoted extracts a title set off by Japanese quotes or lenticular brackets.
func quoted(title string) (string, bool) {
	if m := cornerQuoteRe.FindStringSubmatch(title); m != nil {
		if t := strings.TrimSpace(m[1]); runeLen(t) > 2 {
			return t, true
		}
	}
	if m := lenticularPairRe.FindStringSubmatch(title); m != nil {
		if t := strings.TrimSpace(m[1]); runeLen(t) > 1 {
			return stripTrailingSeparator(t), true
		}
	}
	if m := lenticularRe.FindStringSubmatch(title); m != nil {
		t := strings.TrimSpace(m[1])
		if runeLen(t) > 2 && !lenticularSkipRe.MatchString(t) {
			return stripTrailingSeparator(t), true
		}
	}
	if m := whiteCornerRe.FindStringSubmatch(title); m != nil {
		if t := strings.TrimSpace(m[1]); runeLen(t) > 2 {
			return t, true
		}
	}
	return "", false
}

func stripTrailingSeparator(s string) string {
	t := strings.TrimSpace(trailingSepRe.ReplaceAllString(s, ""))
	if runeLen(t) > 1 {
		return t
	}
	return s
}

// splitArtist picks the track out of "Artist - Track", "Artist · Track" or
// "Artist × Track". A title followed by its romanization keeps the title.
func splitArtist(s string) string {
	if parts := strings.Split(s, " - "); len(parts) > 2 {
		return keepIfLonger(s, strings.TrimSpace(parts[0]), 2)
	}

	for _, re := range []*regexp.Regexp{dashSplitRe, dotSplitRe, crossSplitRe} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		artist, track := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if artist == "" || track == "" || strings.EqualFold(artist, track) {
			continue
		}
		if hasNonLatin(artist) && isASCII(track) {
			return artist
		}
		lt := strings.ToLower(track)
		if strings.Contains(lt, "youtube") || strings.Contains(lt, "music video") || strings.HasPrefix(lt, "official") {
			continue
		}
		if hasFeat(artist) || runeLen(artist) < 3*runeLen(track) {
			return track
		}
	}
	return s
}

func unquote(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {`'`, `'`}, {"「", "」"}, {"“", "”"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			inner := s[len(pair[0]) : len(s)-len(pair[1])]
			if runeLen(inner) > 1 {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

func removeAll(s string, res []*regexp.Regexp, minLen int) string {
	for _, re := range res {
		s = keepIfLonger(s, strings.TrimSpace(re.ReplaceAllString(s, "")), minLen)
	}
	return s
}

// keepIfLonger returns candidate when it has more than minLen runes, else s.
func keepIfLonger(s, candidate string, minLen int) string {
	candidate = strings.TrimSpace(candidate)
	if runeLen(candidate) > minLen {
		return candidate
	}
	return s
}

func hasFeat(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "feat") || strings.Contains(l, "ft.")
}

func hasNonLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
