// Package storage persists the lyrics cache and the manual timing offsets.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// ErrNotFound is returned on a cache miss or an expired entry.
var ErrNotFound = errors.New("storage: not found")

// Cache stores raw lyrics payloads by normalized track key. A write for a
// key is visible to every later read of that key.
type Cache interface {
	GetLyrics(ctx context.Context, key string) (*models.LyricsData, error)
	SetLyrics(ctx context.Context, key string, data *models.LyricsData, ttl time.Duration) error
	DeleteLyrics(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend       string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the configured cache. The SQLite backend is returned as a
// *DBClient so callers can also use it as the offset store.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendSQLite:
		if cfg.DBPath == "" {
			return NewDBClient()
		}
		return NewDBClientWithPath(cfg.DBPath)
	case BackendRedis:
		return NewRedisCache(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	case BackendMemory:
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func encodeLyrics(data *models.LyricsData) (string, error) {
	if data == nil {
		return "", errors.New("nil lyrics payload")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encoding lyrics: %w", err)
	}
	return string(b), nil
}

func decodeLyrics(payload string) (*models.LyricsData, error) {
	var data models.LyricsData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("decoding cached lyrics: %w", err)
	}
	return &data, nil
}
