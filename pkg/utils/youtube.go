package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// youtubeHost reports whether host serves YouTube videos, including
// YouTube Music and the mobile site.
func youtubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com":
		return true
	}
	return false
}

// ExtractYouTubeID returns the 11-character video id of a watch, short
// link, embed, shorts or live URL.
func ExtractYouTubeID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if !youtubeHost(u.Host) {
		return "", fmt.Errorf("not a YouTube URL: %s", rawURL)
	}

	var id string
	if strings.EqualFold(strings.TrimPrefix(u.Host, "www."), "youtu.be") {
		id = strings.Trim(u.Path, "/")
	} else if v := u.Query().Get("v"); v != "" {
		id = v
	} else {
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}

	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("no video id in %s", rawURL)
	}
	return id, nil
}

// IsYouTubeURL reports whether rawURL points at a YouTube host.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	return err == nil && youtubeHost(u.Host)
}
