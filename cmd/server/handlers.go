package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/internal/reporter"
	"github.com/Error0229/Lyryc-sub000/pkg/lyryc"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service *lyryc.Service
	session *lyryc.Session
	hub     *reporter.Hub
	config  *ServerConfig
	log     lyryc.Logger
	started time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	CacheBackend   string
	AIAlignment    bool
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewServer wires the service to a live session and the reporter hub.
// Results accepted by the session are broadcast to every connected
// extension.
func NewServer(ctx context.Context, service *lyryc.Service, config *ServerConfig, log lyryc.Logger) *Server {
	s := &Server{
		service: service,
		config:  config,
		log:     log,
		started: time.Now(),
	}
	s.session = lyryc.NewSession(ctx, service, nil, s.publish)
	s.hub = reporter.NewHub(s.session, reporter.Config{AllowedOrigins: config.AllowedOrigins, Logger: log})
	return s
}

func (s *Server) publish(res *lyryc.Result) {
	if err := s.hub.BroadcastLyrics(res); err != nil && !errors.Is(err, reporter.ErrClosed) {
		s.log.Warnf("Failed to broadcast lyrics: %v", err)
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// decode reads a bounded JSON body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.log.Debugf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Lyryc API",
		"version": "0.1.0",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"lyrics":       "GET /api/lyrics?title=&artist=&duration=&audio=",
			"raw":          "GET /api/lyrics/raw?title=&artist=",
			"parse":        "POST /api/parse",
			"align":        "POST /api/align",
			"compare":      "POST /api/compare",
			"trackOffset":  "GET|PUT|DELETE /api/offsets/track",
			"globalOffset": "GET|PUT /api/offsets/global",
			"playback":     "GET /api/playback",
			"command":      "POST /api/playback/command",
			"reporter":     "GET /ws",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Time:         time.Now().Format(time.RFC3339),
		Uptime:       strings.TrimSpace(humanize.RelTime(s.started, time.Now(), "", "")),
		DatabasePath: s.config.DBPath,
		CacheBackend: s.config.CacheBackend,
		AIAlignment:  s.config.AIAlignment,
		Clients:      s.hub.Clients(),
	})
}

// handleLyrics handles GET /api/lyrics
func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := lyryc.Request{
		Title:    q.Get("title"),
		Artist:   q.Get("artist"),
		Album:    q.Get("album"),
		AudioURL: q.Get("audio"),
	}
	if strings.TrimSpace(req.Title) == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if d := q.Get("duration"); d != "" {
		v, err := strconv.ParseFloat(d, 64)
		if err != nil || v < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid duration")
			return
		}
		req.DurationSec = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	res, err := s.service.ProcessTrackLyrics(ctx, req)
	if err != nil {
		switch lyryc.Classify(err) {
		case lyryc.OutcomeCancelled:
			s.log.Debugf("Lyrics request for %q cancelled: %v", req.Title, err)
			s.respondError(w, http.StatusRequestTimeout, "Request cancelled")
		case lyryc.OutcomeEmpty:
			s.respondError(w, http.StatusNotFound, lyryc.UserMessage(err))
		default:
			s.log.Errorf("Lyrics request for %q failed: %v", req.Title, err)
			s.respondError(w, http.StatusBadGateway, lyryc.UserMessage(err))
		}
		return
	}

	resp := LyricsResponse{Result: res, Outcome: res.Outcome()}
	if resp.Outcome == lyryc.OutcomeEmpty {
		resp.Message = lyryc.UserMessage(lyryc.ErrNoDataFound)
	}
	s.log.Infof("Lyrics for %q by %q: %d lines, %s, %s", req.Title, req.Artist, len(res.Lyrics), res.Method, res.ProcessingTime.Round(time.Millisecond))
	s.respondJSON(w, http.StatusOK, resp)
}

// handleRawLyrics handles GET /api/lyrics/raw
func (s *Server) handleRawLyrics(w http.ResponseWriter, r *http.Request) {
	title, artist := r.URL.Query().Get("title"), r.URL.Query().Get("artist")
	if strings.TrimSpace(title) == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	rec, err := s.service.FetchRaw(ctx, title, artist)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, rec)
	case errors.Is(err, lyryc.ErrNoDataFound):
		s.respondError(w, http.StatusNotFound, lyryc.UserMessage(err))
	default:
		s.log.Errorf("Raw lyrics for %q failed: %v", title, err)
		s.respondError(w, http.StatusBadGateway, lyryc.UserMessage(err))
	}
}

// handleParse handles POST /api/parse
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, stats := lrc.ParseWithStats(req.LRC)
	if req.Words {
		for i := range lines {
			if lines[i].HasWords() {
				align.CloseOpenWords(&lines[i])
			} else {
				lines[i].Words = align.GenerateWordTimings(lines[i])
			}
		}
	}
	s.respondJSON(w, http.StatusOK, ParseResponse{
		Lines:    lines,
		Parsed:   stats.Parsed,
		Skipped:  stats.Skipped,
		Metadata: stats.Metadata,
	})
}

// handleAlign handles POST /api/align
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req AlignRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	total := req.DurationSec
	if total == 0 {
		total = lyryc.PlainLineSeconds * float64(len(align.SplitLines(req.Text)))
	}
	lines, err := align.AlignPlainText(req.Text, align.Options{
		TotalDurationSec:   total,
		MinLineDurationSec: req.MinLineSec,
		MaxLineDurationSec: req.MaxLineSec,
	})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, AlignResponse{Lines: lines, Count: len(lines)})
}

// handleCompare handles POST /api/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, align.CompareAlignments(req.Got, req.Reference))
}

// offsetFor reports the offsets of one track.
func (s *Server) offsetFor(ctx context.Context, artist, title string) (OffsetResponse, error) {
	m := s.service.Offsets()
	track, err := m.TrackOffset(ctx, artist, title)
	if err != nil {
		return OffsetResponse{}, err
	}
	global, err := m.GlobalOffset(ctx)
	if err != nil {
		return OffsetResponse{}, err
	}
	return OffsetResponse{Artist: artist, Title: title, Track: track, Global: global, Total: track + global}, nil
}

// handleGetTrackOffset handles GET /api/offsets/track
func (s *Server) handleGetTrackOffset(w http.ResponseWriter, r *http.Request) {
	title, artist := r.URL.Query().Get("title"), r.URL.Query().Get("artist")
	if strings.TrimSpace(title) == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	resp, err := s.offsetFor(r.Context(), artist, title)
	if err != nil {
		s.log.Errorf("Failed to read offsets: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read offsets")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePutTrackOffset handles PUT /api/offsets/track
func (s *Server) handlePutTrackOffset(w http.ResponseWriter, r *http.Request) {
	var req OffsetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(true); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.service.Offsets().SetTrackOffset(r.Context(), req.Artist, req.Title, *req.Offset); err != nil {
		s.log.Errorf("Failed to store offset: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to store offset")
		return
	}
	s.log.Infof("Offset for %q by %q set to %+.3fs", req.Title, req.Artist, *req.Offset)
	resp, err := s.offsetFor(r.Context(), req.Artist, req.Title)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to read offsets")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleDeleteTrackOffset handles DELETE /api/offsets/track
func (s *Server) handleDeleteTrackOffset(w http.ResponseWriter, r *http.Request) {
	title, artist := r.URL.Query().Get("title"), r.URL.Query().Get("artist")
	if strings.TrimSpace(title) == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.service.Offsets().DeleteTrackOffset(r.Context(), artist, title); err != nil {
		s.log.Errorf("Failed to delete offset: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete offset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetGlobalOffset handles GET /api/offsets/global
func (s *Server) handleGetGlobalOffset(w http.ResponseWriter, r *http.Request) {
	global, err := s.service.Offsets().GlobalOffset(r.Context())
	if err != nil {
		s.log.Errorf("Failed to read global offset: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read offsets")
		return
	}
	s.respondJSON(w, http.StatusOK, OffsetResponse{Global: global, Total: global})
}

// handlePutGlobalOffset handles PUT /api/offsets/global
func (s *Server) handlePutGlobalOffset(w http.ResponseWriter, r *http.Request) {
	var req OffsetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(false); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.service.Offsets().SetGlobalOffset(r.Context(), *req.Offset); err != nil {
		s.log.Errorf("Failed to store global offset: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to store offset")
		return
	}
	s.respondJSON(w, http.StatusOK, OffsetResponse{Global: *req.Offset, Total: *req.Offset})
}

// handlePlayback handles GET /api/playback
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.State(r.Context()))
}

// handlePlaybackCommand handles POST /api/playback/command
func (s *Server) handlePlaybackCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.hub.SendPlaybackCommand(req.Command, req.SeekTime); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, fmt.Sprintf("Failed to send command: %v", err))
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]any{"command": req.Command, "clients": s.hub.Clients()})
}
