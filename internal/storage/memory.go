package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

type memoryEntry struct {
	data      models.LyricsData
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. Entries are copied on the way in
// and out so callers cannot mutate what is stored.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) GetLyrics(ctx context.Context, key string) (*models.LyricsData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && m.now().After(e.expiresAt)) {
		return nil, ErrNotFound
	}
	data := e.data
	return &data, nil
}

func (m *MemoryCache) SetLyrics(ctx context.Context, key string, data *models.LyricsData, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil {
		_, err := encodeLyrics(nil)
		return err
	}
	e := memoryEntry{data: *data}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) DeleteLyrics(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Close() error { return nil }
