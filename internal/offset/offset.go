// Package offset composes manual timing corrections with the playback
// clock: adjusted = clock + track offset + global offset.
package offset

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Store persists offsets in seconds. Unknown tracks have no offset.
type Store interface {
	TrackOffset(ctx context.Context, key string) (float64, bool, error)
	SetTrackOffset(ctx context.Context, key, artist, title string, sec float64) error
	DeleteTrackOffset(ctx context.Context, key string) error
	GlobalOffset(ctx context.Context) (float64, error)
	SetGlobalOffset(ctx context.Context, sec float64) error
}

var fold = cases.Fold()

// Key normalizes artist and title for lookup: trimmed, case folded and
// with inner whitespace collapsed.
func Key(artist, title string) string {
	return norm(artist) + "|" + norm(title)
}

func norm(s string) string {
	return strings.Join(strings.Fields(fold.String(s)), " ")
}

// Model reads and writes offsets through a Store.
type Model struct {
	store Store
}

func NewModel(store Store) *Model {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Model{store: store}
}

// TrackOffset returns the per-track offset, zero when none is stored.
func (m *Model) TrackOffset(ctx context.Context, artist, title string) (float64, error) {
	v, _, err := m.store.TrackOffset(ctx, Key(artist, title))
	return v, err
}

// TotalOffset returns track offset + global offset.
func (m *Model) TotalOffset(ctx context.Context, artist, title string) (float64, error) {
	track, err := m.TrackOffset(ctx, artist, title)
	if err != nil {
		return 0, err
	}
	global, err := m.store.GlobalOffset(ctx)
	if err != nil {
		return 0, err
	}
	return track + global, nil
}

// Adjust applies the total offset to a clock reading.
func (m *Model) Adjust(ctx context.Context, clockTime float64, artist, title string) (float64, error) {
	total, err := m.TotalOffset(ctx, artist, title)
	if err != nil {
		return clockTime, err
	}
	return clockTime + total, nil
}

func (m *Model) SetTrackOffset(ctx context.Context, artist, title string, sec float64) error {
	return m.store.SetTrackOffset(ctx, Key(artist, title), strings.TrimSpace(artist), strings.TrimSpace(title), sec)
}

func (m *Model) DeleteTrackOffset(ctx context.Context, artist, title string) error {
	return m.store.DeleteTrackOffset(ctx, Key(artist, title))
}

func (m *Model) GlobalOffset(ctx context.Context) (float64, error) {
	return m.store.GlobalOffset(ctx)
}

func (m *Model) SetGlobalOffset(ctx context.Context, sec float64) error {
	return m.store.SetGlobalOffset(ctx, sec)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	tracks map[string]float64
	global float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tracks: make(map[string]float64)}
}

func (s *MemoryStore) TrackOffset(_ context.Context, key string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tracks[key]
	return v, ok, nil
}

func (s *MemoryStore) SetTrackOffset(_ context.Context, key, _, _ string, sec float64) error {
	s.mu.Lock()
	s.tracks[key] = sec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteTrackOffset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.tracks, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GlobalOffset(context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global, nil
}

func (s *MemoryStore) SetGlobalOffset(_ context.Context, sec float64) error {
	s.mu.Lock()
	s.global = sec
	s.mu.Unlock()
	return nil
}
