package lyryc

import (
	"context"
	"fmt"
	"strings"

	"github.com/Error0229/Lyryc-sub000/internal/config"
	"github.com/Error0229/Lyryc-sub000/internal/storage"
)

// Options translates environment settings into service options.
func Options(c *config.Config) []Option {
	return []Option{
		WithDBPath(c.DBPath),
		WithTempDir(c.TempDir),
		WithSampleRate(c.SampleRate),
		WithLrclib(c.LrclibURL, c.UserAgent),
		WithTimeouts(c.FetchTimeout, c.OverallTimeout),
		WithLocalLyricsDir(c.LocalLyricsDir),
		WithCacheTTL(c.CacheTTL),
		WithAIAlignment(c.AIAlignment),
		WithConfidenceThreshold(c.ConfidenceThreshold),
	}
}

// NewServiceFromConfig builds a Service from environment settings. A
// non-SQLite cache backend is opened here and closed with the service;
// offsets always live in the SQLite database.
func NewServiceFromConfig(ctx context.Context, c *config.Config, extra ...Option) (*Service, error) {
	opts := Options(c)

	var cache storage.Cache
	if b := strings.ToLower(c.CacheBackend); b != "" && b != storage.BackendSQLite {
		var err error
		cache, err = storage.Open(ctx, storage.Config{
			Backend:       b,
			RedisAddr:     c.RedisAddr,
			RedisPassword: c.RedisPassword,
			RedisDB:       c.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open %s cache: %w", b, err)
		}
		opts = append(opts, WithCache(cache))
	}

	svc, err := NewService(append(opts, extra...)...)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}
	if cache != nil {
		svc.closers = append(svc.closers, cache)
	}
	return svc, nil
}
