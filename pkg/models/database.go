package models

// TrackInfo describes the track reported by the player.
type TrackInfo struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	DurationSec float64 `json:"duration,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// LyricsData is the raw payload returned by a lyrics source. It is what the
// cache stores; nothing derived from it is persisted.
type LyricsData struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	DurationSec  float64 `json:"duration"`
	Instrumental bool    `json:"instrumental,omitempty"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
	Source       string  `json:"source,omitempty"`
}

// HasSynced reports whether timed lyrics are present.
func (d *LyricsData) HasSynced() bool {
	return d != nil && trimmedNonEmpty(d.SyncedLyrics)
}

// HasPlain reports whether untimed lyrics are present.
func (d *LyricsData) HasPlain() bool {
	return d != nil && trimmedNonEmpty(d.PlainLyrics)
}

// IsEmpty reports whether the payload carries no usable lyrics.
func (d *LyricsData) IsEmpty() bool {
	return !d.HasSynced() && !d.HasPlain()
}

func trimmedNonEmpty(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return true
	}
	return false
}
