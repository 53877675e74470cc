package main

import (
	"fmt"
	"strings"

	"github.com/Error0229/Lyryc-sub000/internal/reporter"
	"github.com/Error0229/Lyryc-sub000/pkg/lyryc"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// MaxBodyBytes bounds JSON request bodies (LRC payloads included).
const MaxBodyBytes = 1 << 20

// LyricsResponse is the response for GET /api/lyrics
type LyricsResponse struct {
	*lyryc.Result
	Outcome lyryc.Outcome `json:"outcome"`
	Message string        `json:"message,omitempty"`
}

// ParseRequest is the request body for POST /api/parse
type ParseRequest struct {
	LRC string `json:"lrc"`
	// Words adds generated word timings to lines that have none.
	Words bool `json:"words,omitempty"`
}

func (r *ParseRequest) Validate() error {
	if strings.TrimSpace(r.LRC) == "" {
		return fmt.Errorf("lrc is required")
	}
	return nil
}

// ParseResponse is the response for POST /api/parse
type ParseResponse struct {
	Lines    []models.LyricLine `json:"lines"`
	Parsed   int                `json:"parsed"`
	Skipped  int                `json:"skipped"`
	Metadata int                `json:"metadata"`
}

// AlignRequest is the request body for POST /api/align
type AlignRequest struct {
	Text        string  `json:"text"`
	DurationSec float64 `json:"duration"`
	MinLineSec  float64 `json:"minLine,omitempty"`
	MaxLineSec  float64 `json:"maxLine,omitempty"`
}

func (r *AlignRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if r.DurationSec < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}

// AlignResponse is the response for POST /api/align
type AlignResponse struct {
	Lines []models.AlignedLine `json:"lines"`
	Count int                  `json:"count"`
}

// CompareRequest is the request body for POST /api/compare
type CompareRequest struct {
	Got       []models.AlignedLine `json:"got"`
	Reference []models.AlignedLine `json:"reference"`
}

func (r *CompareRequest) Validate() error {
	if len(r.Got) == 0 || len(r.Reference) == 0 {
		return fmt.Errorf("got and reference cannot be empty")
	}
	return nil
}

// OffsetRequest is the request body for PUT /api/offsets/track and
// PUT /api/offsets/global
type OffsetRequest struct {
	Artist string   `json:"artist,omitempty"`
	Title  string   `json:"title,omitempty"`
	Offset *float64 `json:"offset"`
}

func (r *OffsetRequest) Validate(needTrack bool) error {
	if r.Offset == nil {
		return fmt.Errorf("offset is required")
	}
	if needTrack && strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// OffsetResponse reports the offsets that apply to a track.
type OffsetResponse struct {
	Artist string  `json:"artist,omitempty"`
	Title  string  `json:"title,omitempty"`
	Track  float64 `json:"track"`
	Global float64 `json:"global"`
	Total  float64 `json:"total"`
}

// CommandRequest is the request body for POST /api/playback/command
type CommandRequest struct {
	Command  reporter.Command `json:"command"`
	SeekTime *float64         `json:"seekTime,omitempty"`
}

func (r *CommandRequest) Validate() error {
	switch r.Command {
	case reporter.CommandPlay, reporter.CommandPause, reporter.CommandNext, reporter.CommandPrevious:
		return nil
	case reporter.CommandSeek:
		if r.SeekTime == nil || *r.SeekTime < 0 {
			return fmt.Errorf("seek needs a non-negative seekTime")
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", r.Command)
	}
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status       string `json:"status"`
	Time         string `json:"time"`
	Uptime       string `json:"uptime"`
	DatabasePath string `json:"database_path"`
	CacheBackend string `json:"cache_backend"`
	AIAlignment  bool   `json:"ai_alignment"`
	Clients      int    `json:"clients"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
