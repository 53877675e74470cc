package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestSearcher(url string, timeout time.Duration) *Searcher {
	s := NewSearcher(NewClient(ClientConfig{BaseURL: url, Timeout: timeout}), SearcherConfig{}, nil)
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return s
}

func strategyNames(st []Strategy) []string {
	names := make([]string, len(st))
	for i, s := range st {
		names[i] = s.Name
	}
	return names
}

func TestStrategies(t *testing.T) {
	st := Strategies(Query{Title: "Daft Punk - Get Lucky (Official Audio)", Artist: "Daft Punk"})
	assert.Equal(t, []string{"exact", "exact-without-artist", "cleaned", "swapped", "wildcard", "wildcard-cleaned", "wildcard-title"}, strategyNames(st))

	assert.Equal(t, ModeGet, st[0].Mode)
	assert.Equal(t, "Get Lucky (Official Audio)", st[1].Params.TrackName)
	assert.Equal(t, "Get Lucky", st[2].Params.TrackName)
	assert.Equal(t, SearchParams{TrackName: "Daft Punk", ArtistName: "Daft Punk - Get Lucky (Official Audio)"}, st[3].Params)
	assert.Equal(t, "Get Lucky Daft Punk", st[5].Params.Q)

	assert.Equal(t, []string{"exact", "wildcard-title"}, strategyNames(Strategies(Query{Title: "Get Lucky"})))
	assert.Empty(t, Strategies(Query{Title: "  ", Artist: "x"}))
}

func TestSearcherWalksStrategies(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		switch {
		case r.URL.Path == "/get":
			http.NotFound(w, r)
		case r.URL.Query().Get("q") == "Get Lucky Daft Punk":
			writeJSON(w, []Record{
				{TrackName: "Get Lucky", ArtistName: "Daft Punk", PlainLyrics: "plain"},
				{TrackName: "Get Lucky", ArtistName: "Daft Punk", Duration: 248, SyncedLyrics: "[00:01.00]Like the legend"},
			})
		default:
			writeJSON(w, []Record{})
		}
	}))
	defer srv.Close()

	s := newTestSearcher(srv.URL, time.Second)
	data, err := s.Fetch(context.Background(), Query{Title: "Daft Punk - Get Lucky (Official Audio)", Artist: "Daft Punk"})
	require.NoError(t, err)
	assert.True(t, data.HasSynced())
	assert.Equal(t, 248.0, data.DurationSec)
	assert.Equal(t, "lrclib", data.Source)
	// exact, exact-without-artist, cleaned, swapped, wildcard, wildcard-cleaned
	assert.Equal(t, int32(6), atomic.LoadInt32(&requests))
}

func TestSearcherNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []Record{{TrackName: "Nothing here"}})
	}))
	defer srv.Close()

	_, err := newTestSearcher(srv.URL, time.Second).Fetch(context.Background(), Query{Title: "Song", Artist: "Band"})
	assert.ErrorIs(t, err, ErrNoDataFound)
}

func TestSearcherInstrumental(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Record{TrackName: "Interlude", Instrumental: true})
	}))
	defer srv.Close()

	data, err := newTestSearcher(srv.URL, time.Second).Fetch(context.Background(), Query{Title: "Interlude", Artist: "Band"})
	require.NoError(t, err)
	assert.True(t, data.Instrumental)
	assert.True(t, data.IsEmpty())
}

func TestSearcherRetriesServerErrors(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&gets, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, Record{TrackName: "Song", SyncedLyrics: "[00:01.00]la"})
	}))
	defer srv.Close()

	data, err := newTestSearcher(srv.URL, time.Second).Fetch(context.Background(), Query{Title: "Song", Artist: "Band"})
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]la", data.SyncedLyrics)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))
}

func TestSearcherNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestSearcher(srv.URL, time.Second).Fetch(context.Background(), Query{Title: "Song", Artist: "Band"})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrNoDataFound)
}

func TestSearcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	_, err := newTestSearcher(srv.URL, 20*time.Millisecond).Fetch(context.Background(), Query{Title: "Song"})
	assert.ErrorIs(t, err, ErrNetworkTimeout)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSearcherCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []Record{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestSearcher(srv.URL, time.Second).Fetch(ctx, Query{Title: "Song", Artist: "Band"})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestFetchRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			writeJSON(w, []Record{})
			return
		}
		assert.Equal(t, "Song Band", r.URL.Query().Get("q"))
		writeJSON(w, []Record{
			{TrackName: "Song", AlbumName: "A", PlainLyrics: "la"},
			{TrackName: "Song", AlbumName: "B", SyncedLyrics: "[00:01.00]la"},
		})
	}))
	defer srv.Close()

	data, err := newTestSearcher(srv.URL, time.Second).FetchRaw(context.Background(), "Song", "Band")
	require.NoError(t, err)
	assert.Equal(t, "B", data.AlbumName)
}

func TestBest(t *testing.T) {
	hits := []Record{
		{TrackName: "Something Else", PlainLyrics: "x"},
		{TrackName: "Get Lucky (Radio Edit)", SyncedLyrics: "[00:01.00]a", Duration: 248},
		{TrackName: "Get Lucky", SyncedLyrics: "[00:01.00]b", Duration: 369},
	}
	best := Best(hits, Query{Title: "Get Lucky", DurationSec: 368})
	require.NotNil(t, best)
	assert.Equal(t, 369.0, best.Duration)

	best = Best([]Record{
		{TrackName: "Around the World", SyncedLyrics: "a"},
		{TrackName: "Get Lucky", SyncedLyrics: "b"},
	}, Query{Title: "Get Lucky"})
	require.NotNil(t, best)
	assert.Equal(t, "Get Lucky", best.TrackName)

	best = Best([]Record{{TrackName: "Song", PlainLyrics: "p"}}, Query{Title: "Other"})
	require.NotNil(t, best)
	assert.Equal(t, "p", best.PlainLyrics)

	best = Best([]Record{{TrackName: "x"}, {TrackName: "Intro", Instrumental: true}}, Query{Title: "Intro"})
	require.NotNil(t, best)
	assert.True(t, best.Instrumental)

	assert.Nil(t, Best([]Record{{TrackName: "x"}}, Query{Title: "x"}))
	assert.Nil(t, Best(nil, Query{Title: "x"}))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "daft punk|get lucky", NormalizeKey("Daft Punk", "Get Lucky (feat. Pharrell Williams)"))
	assert.Equal(t, NormalizeKey("  DAFT punk ", "GET LUCKY!"), NormalizeKey("Daft Punk", "Get Lucky"))
	assert.Equal(t, "|lemon", NormalizeKey("", "Lemon"))
}

type fakeFetcher struct {
	name  string
	data  *models.LyricsData
	err   error
	calls int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, q Query) (*models.LyricsData, error) {
	f.calls++
	return f.data, f.err
}

func TestChain(t *testing.T) {
	miss := &fakeFetcher{name: "local", err: ErrNoDataFound}
	hit := &fakeFetcher{name: "lrclib", data: &models.LyricsData{PlainLyrics: "la"}}
	after := &fakeFetcher{name: "never"}

	chain := Chain{miss, hit, after}
	assert.Equal(t, "local+lrclib+never", chain.Name())
	data, err := chain.Fetch(context.Background(), Query{Title: "Song"})
	require.NoError(t, err)
	assert.Equal(t, "lrclib", data.Source)
	assert.Equal(t, 0, after.calls)

	_, err = Chain{miss}.Fetch(context.Background(), Query{Title: "Song"})
	assert.ErrorIs(t, err, ErrNoDataFound)

	broken := &fakeFetcher{name: "lrclib", err: ErrNetworkTimeout}
	_, err = Chain{broken, miss}.Fetch(context.Background(), Query{Title: "Song"})
	assert.ErrorIs(t, err, ErrNetworkTimeout)
}
