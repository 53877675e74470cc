package lyryc

import (
	"time"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Method tells how the returned timings were produced.
type Method string

const (
	// MethodOriginal: timings came from synced lyrics.
	MethodOriginal Method = "original"
	// MethodAIAligned: timings were refined against the audio.
	MethodAIAligned Method = "ai-aligned"
	// MethodFallback: timings were estimated from plain lyrics.
	MethodFallback Method = "fallback"
)

// Confidence reported for the non-refined methods.
const (
	OriginalConfidence = 1.0
	FallbackConfidence = 0.5
)

// PlainLineSeconds is the per-line budget used to size plain lyrics when
// no track duration is known.
const PlainLineSeconds = 5.0

// Request identifies the track to load lyrics for.
type Request struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album,omitempty"`
	DurationSec float64 `json:"duration,omitempty"`
	// AudioURL is a local path, http(s) URL or YouTube URL used for
	// refinement. Optional.
	AudioURL string `json:"audioUrl,omitempty"`
}

func (r Request) query() Query {
	return Query{Title: r.Title, Artist: r.Artist, Album: r.Album, DurationSec: r.DurationSec}
}

// Result is a processed set of lyrics.
type Result struct {
	Lyrics         []models.LyricLine `json:"lyrics"`
	Confidence     float64            `json:"confidence"`
	Method         Method             `json:"method"`
	ProcessingTime time.Duration      `json:"processingTime"`
	HasWordTimings bool               `json:"hasWordTimings"`

	Language  string  `json:"language"`
	Source    string  `json:"source,omitempty"`
	Track     Request `json:"track"`
	RequestID uint64  `json:"requestId,omitempty"`
}

// Outcome is OutcomeEmpty when no lines were found.
func (r *Result) Outcome() Outcome {
	if r == nil || len(r.Lyrics) == 0 {
		return OutcomeEmpty
	}
	return OutcomeLyrics
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Lyrics = make([]models.LyricLine, len(r.Lyrics))
	for i, l := range r.Lyrics {
		l.Words = append([]models.WordTiming(nil), l.Words...)
		out.Lyrics[i] = l
	}
	return &out
}
