package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Error0229/Lyryc-sub000/pkg/logger"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// the reporter endpoint upgrades the connection, so it skips the
	// JSON middleware chain
	r.Handle("/ws", s.hub).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/lyrics", s.handleLyrics).Methods(http.MethodGet)
	api.HandleFunc("/lyrics/raw", s.handleRawLyrics).Methods(http.MethodGet)
	api.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	api.HandleFunc("/align", s.handleAlign).Methods(http.MethodPost)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)

	api.HandleFunc("/offsets/track", s.handleGetTrackOffset).Methods(http.MethodGet)
	api.HandleFunc("/offsets/track", s.handlePutTrackOffset).Methods(http.MethodPut)
	api.HandleFunc("/offsets/track", s.handleDeleteTrackOffset).Methods(http.MethodDelete)
	api.HandleFunc("/offsets/global", s.handleGetGlobalOffset).Methods(http.MethodGet)
	api.HandleFunc("/offsets/global", s.handlePutGlobalOffset).Methods(http.MethodPut)

	api.HandleFunc("/playback", s.handlePlayback).Methods(http.MethodGet)
	api.HandleFunc("/playback/command", s.handlePlaybackCommand).Methods(http.MethodPost)

	// preflight requests for any /api route
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api.Use(loggingMiddleware)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "No such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return corsMiddleware(s.config.AllowedOrigins)(r)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			ok := false
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				ok = true
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				ok = true
			}

			if ok {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		logger.Debugf("%s %s from %s -> %d (%s)", r.Method, r.URL.Path, getClientIP(r), wrapped.statusCode, time.Since(start).Round(time.Microsecond))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Run starts the reporter hub and playback clock and serves HTTP until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.session.Clock().Run(ctx)

	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("Lyryc server starting on %s", addr)
	s.log.Infof("   Database: %s (cache: %s)", s.config.DBPath, s.config.CacheBackend)
	s.log.Infof("   AI alignment: %v", s.config.AIAlignment)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("   Extension endpoint: ws://localhost%s/ws", addr)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.session.Wait()
	return err
}
