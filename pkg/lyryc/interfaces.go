package lyryc

import (
	"context"

	"github.com/Error0229/Lyryc-sub000/internal/audio"
	"github.com/Error0229/Lyryc-sub000/internal/offset"
	"github.com/Error0229/Lyryc-sub000/internal/provider"
	"github.com/Error0229/Lyryc-sub000/internal/storage"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Fetcher is a lyrics source.
type Fetcher = provider.Fetcher

// Query is what a Fetcher is asked for.
type Query = provider.Query

// Cache stores raw lyrics payloads.
type Cache = storage.Cache

// OffsetStore persists manual timing offsets.
type OffsetStore = offset.Store

// AudioLoader turns an audio URL or path into decoded mono samples.
type AudioLoader interface {
	Load(ctx context.Context, source string) (*audio.Buffer, error)
}

// RawFetcher is implemented by fetchers that can return an unranked record
// for a title and artist.
type RawFetcher interface {
	FetchRaw(ctx context.Context, title, artist string) (*models.LyricsData, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
