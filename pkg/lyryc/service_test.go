package lyryc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Error0229/Lyryc-sub000/internal/audio"
	"github.com/Error0229/Lyryc-sub000/internal/config"
	"github.com/Error0229/Lyryc-sub000/internal/offset"
	"github.com/Error0229/Lyryc-sub000/internal/storage"
	"github.com/Error0229/Lyryc-sub000/pkg/logger"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

const syncedPayload = "[ar:Band]\n[00:01.00]Hello world tonight\n[00:04.50]We sing along\n[00:08.00]Until the end\n"

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string]*models.LyricsData
	err   error
	calls atomic.Int32
	// block, when set, is called before answering.
	block func(ctx context.Context, q Query) error
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, q Query) (*models.LyricsData, error) {
	f.calls.Add(1)
	if f.block != nil {
		if err := f.block(ctx, q); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[q.Title]
	if !ok {
		return nil, ErrNoDataFound
	}
	cp := *d
	cp.Source = "fake"
	return &cp, nil
}

type rawFetcher struct {
	fakeFetcher
}

func (r *rawFetcher) FetchRaw(_ context.Context, title, artist string) (*models.LyricsData, error) {
	return &models.LyricsData{TrackName: title, ArtistName: artist, PlainLyrics: "raw"}, nil
}

type fakeLoader struct {
	buf   *audio.Buffer
	err   error
	calls atomic.Int32
}

func (l *fakeLoader) Load(ctx context.Context, _ string) (*audio.Buffer, error) {
	l.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.buf, l.err
}

// syntheticAudio is 12s of tones and noise with a louder burst per second.
func syntheticAudio() *audio.Buffer {
	const sr = 11025
	rng := rand.New(rand.NewSource(7))
	samples := make([]float64, 12*sr)
	for i := range samples {
		t := float64(i) / sr
		env := 0.2
		if math.Mod(t, 1) < 0.4 {
			env = 0.8
		}
		samples[i] = env*(0.5*math.Sin(2*math.Pi*220*t)+0.3*math.Sin(2*math.Pi*660*t)) + 0.05*(rng.Float64()*2-1)
	}
	return &audio.Buffer{Samples: samples, SampleRate: sr}
}

func newTestService(t *testing.T, f Fetcher, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithLogger(logger.Nop()),
		WithFetcher(f),
		WithCache(storage.NewMemoryCache()),
		WithOffsetStore(offset.NewMemoryStore()),
		WithAudioLoader(&fakeLoader{err: errors.New("no audio in tests")}),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestProcessSyncedLyrics(t *testing.T) {
	f := &fakeFetcher{data: map[string]*models.LyricsData{
		"Song": {TrackName: "Song", ArtistName: "Band", SyncedLyrics: syncedPayload, PlainLyrics: "ignored"},
	}}
	svc := newTestService(t, f)

	res, err := svc.ProcessTrackLyrics(context.Background(), Request{Title: " Song ", Artist: "Band"})
	require.NoError(t, err)

	assert.Equal(t, MethodOriginal, res.Method)
	assert.Equal(t, OriginalConfidence, res.Confidence)
	assert.Equal(t, "fake", res.Source)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, "Song", res.Track.Title)
	assert.True(t, res.HasWordTimings)
	assert.Equal(t, OutcomeLyrics, res.Outcome())

	require.Len(t, res.Lyrics, 3)
	assert.Equal(t, 1.0, res.Lyrics[0].Time)
	assert.Equal(t, "Hello world tonight", res.Lyrics[0].Text)
	for _, l := range res.Lyrics {
		require.NotEmpty(t, l.Words, l.Text)
		assert.GreaterOrEqual(t, l.Words[0].Start, l.Time)
		for _, w := range l.Words {
			assert.False(t, w.IsOpen())
			assert.GreaterOrEqual(t, w.End, w.Start)
		}
	}
}

func TestProcessPlainLyrics(t *testing.T) {
	plain := "first line here\nsecond line here\nthird one\nfourth line now\nfifth line\nand the last"
	f := &fakeFetcher{data: map[string]*models.LyricsData{
		"Song":    {PlainLyrics: plain},
		"NoDur":   {PlainLyrics: "one\ntwo\nthree"},
		"PayDur":  {PlainLyrics: plain, DurationSec: 42},
		"Instr":   {Instrumental: true},
		"Blank":   {PlainLyrics: "   \n  "},
		"BadSync": {SyncedLyrics: "no timestamps at all", PlainLyrics: "one\ntwo\nthree"},
	}}
	svc := newTestService(t, f)
	ctx := context.Background()

	end := func(res *Result) float64 {
		last := res.Lyrics[len(res.Lyrics)-1]
		return last.Time + last.Duration
	}

	res, err := svc.ProcessTrackLyrics(ctx, Request{Title: "Song", Artist: "Band", DurationSec: 30})
	require.NoError(t, err)
	assert.Equal(t, MethodFallback, res.Method)
	assert.Equal(t, FallbackConfidence, res.Confidence)
	require.Len(t, res.Lyrics, 6)
	assert.InDelta(t, 30, end(res), 1e-9)
	assert.True(t, res.HasWordTimings)

	res, err = svc.ProcessTrackLyrics(ctx, Request{Title: "PayDur", Artist: "Band"})
	require.NoError(t, err)
	assert.InDelta(t, 42, end(res), 1e-9)

	res, err = svc.ProcessTrackLyrics(ctx, Request{Title: "NoDur", Artist: "Band"})
	require.NoError(t, err)
	require.Len(t, res.Lyrics, 3)
	assert.InDelta(t, 3*PlainLineSeconds, end(res), 1e-9)

	// synced text without a single timestamp falls back to the plain text
	res, err = svc.ProcessTrackLyrics(ctx, Request{Title: "BadSync", Artist: "Band"})
	require.NoError(t, err)
	assert.Equal(t, MethodFallback, res.Method)
	assert.Len(t, res.Lyrics, 3)

	res, err = svc.ProcessTrackLyrics(ctx, Request{Title: "Instr", Artist: "Band"})
	require.NoError(t, err)
	assert.Empty(t, res.Lyrics)
	assert.Equal(t, OutcomeEmpty, res.Outcome())

	res, err = svc.ProcessTrackLyrics(ctx, Request{Title: "Blank", Artist: "Band"})
	require.NoError(t, err)
	assert.Empty(t, res.Lyrics)
}

func TestProcessNoLyricsIsNotAnError(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{})

	res, err := svc.ProcessTrackLyrics(context.Background(), Request{Title: "Unknown", Artist: "Nobody"})
	require.NoError(t, err)
	assert.NotNil(t, res.Lyrics)
	assert.Empty(t, res.Lyrics)
	assert.False(t, res.HasWordTimings)
	assert.Equal(t, OutcomeEmpty, res.Outcome())

	_, err = svc.ProcessTrackLyrics(context.Background(), Request{Title: "  "})
	assert.ErrorIs(t, err, ErrNoDataFound)
}

func TestProcessNetworkError(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{err: fmt.Errorf("all strategies: %w", ErrNetworkTimeout)})

	_, err := svc.ProcessTrackLyrics(context.Background(), Request{Title: "Song", Artist: "Band"})
	require.Error(t, err)
	assert.Equal(t, OutcomeError, Classify(err))
	assert.Equal(t, "The lyrics service timed out. Try again.", UserMessage(err))
}

func TestProcessUsesCache(t *testing.T) {
	f := &fakeFetcher{data: map[string]*models.LyricsData{"Song": {SyncedLyrics: syncedPayload}}}
	cache := storage.NewMemoryCache()
	svc := newTestService(t, f, WithCache(cache), WithCacheTTL(time.Hour))
	ctx := context.Background()

	_, err := svc.ProcessTrackLyrics(ctx, Request{Title: "Song", Artist: "Band"})
	require.NoError(t, err)
	res, err := svc.ProcessTrackLyrics(ctx, Request{Title: "song", Artist: "BAND"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 1, cache.Len())
	assert.Len(t, res.Lyrics, 3)
}

func TestProcessCancelled(t *testing.T) {
	f := &fakeFetcher{data: map[string]*models.LyricsData{"Song": {SyncedLyrics: syncedPayload}}}
	svc := newTestService(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ProcessTrackLyrics(ctx, Request{Title: "Song", Artist: "Band"})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, Classify(err))
	assert.Empty(t, UserMessage(err))
	assert.Zero(t, f.calls.Load())

	// cancelled while the fetch is in flight, even if the fetch succeeds
	ctx, cancel = context.WithCancel(context.Background())
	f.block = func(context.Context, Query) error {
		cancel()
		return nil
	}
	_, err = svc.ProcessTrackLyrics(ctx, Request{Title: "Song", Artist: "Band"})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestSubmitSupersedesOlderRequest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeFetcher{data: map[string]*models.LyricsData{
		"Old": {SyncedLyrics: "[00:01.00]old"},
		"New": {SyncedLyrics: "[00:01.00]new"},
	}}
	// Old ignores cancellation and answers late, after New has finished.
	f.block = func(_ context.Context, q Query) error {
		if q.Title == "Old" {
			close(started)
			<-release
		}
		return nil
	}
	svc := newTestService(t, f)

	type outcome struct {
		res *Result
		err error
	}
	oldDone := make(chan outcome, 1)
	go func() {
		res, err := svc.Submit(context.Background(), Request{Title: "Old", Artist: "Band"})
		oldDone <- outcome{res, err}
	}()
	<-started

	res, err := svc.Submit(context.Background(), Request{Title: "New", Artist: "Band"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.Lyrics[0].Text)
	assert.EqualValues(t, 2, res.RequestID)

	close(release)
	old := <-oldDone
	assert.Nil(t, old.res)
	assert.ErrorIs(t, old.err, ErrCancelled)

	latest := svc.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, "New", latest.Track.Title)

	// Latest hands out copies
	latest.Lyrics[0].Text = "mutated"
	assert.Equal(t, "new", svc.Latest().Lyrics[0].Text)
}

func TestSubmitCancelsInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	f := &fakeFetcher{data: map[string]*models.LyricsData{"New": {SyncedLyrics: "[00:01.00]new"}}}
	f.block = func(ctx context.Context, q Query) error {
		if q.Title != "Slow" {
			return nil
		}
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	svc := newTestService(t, f)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), Request{Title: "Slow", Artist: "Band"})
		errc <- err
	}()
	<-started

	_, err := svc.Submit(context.Background(), Request{Title: "New", Artist: "Band"})
	require.NoError(t, err)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("older request was not cancelled")
	}
}

func TestRefinement(t *testing.T) {
	data := map[string]*models.LyricsData{"Song": {SyncedLyrics: syncedPayload}}
	req := Request{Title: "Song", Artist: "Band", AudioURL: "/music/song.mp3"}

	t.Run("accepted", func(t *testing.T) {
		loader := &fakeLoader{buf: syntheticAudio()}
		svc := newTestService(t, &fakeFetcher{data: data}, WithAIAlignment(true), WithAudioLoader(loader), WithConfidenceThreshold(0))
		res, err := svc.ProcessTrackLyrics(context.Background(), req)
		require.NoError(t, err)
		assert.EqualValues(t, 1, loader.calls.Load())
		assert.Equal(t, MethodAIAligned, res.Method)
		assert.Len(t, res.Lyrics, 3)
		assert.True(t, res.HasWordTimings)
	})

	t.Run("below threshold", func(t *testing.T) {
		loader := &fakeLoader{buf: syntheticAudio()}
		svc := newTestService(t, &fakeFetcher{data: data}, WithAIAlignment(true), WithAudioLoader(loader), WithConfidenceThreshold(1.01))
		res, err := svc.ProcessTrackLyrics(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, MethodOriginal, res.Method)
		assert.Equal(t, 1.0, res.Lyrics[0].Time)
	})

	t.Run("audio unavailable", func(t *testing.T) {
		svc := newTestService(t, &fakeFetcher{data: data}, WithAIAlignment(true))
		res, err := svc.ProcessTrackLyrics(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, MethodOriginal, res.Method)
	})

	t.Run("disabled", func(t *testing.T) {
		loader := &fakeLoader{buf: syntheticAudio()}
		svc := newTestService(t, &fakeFetcher{data: data}, WithAudioLoader(loader))
		_, err := svc.ProcessTrackLyrics(context.Background(), req)
		require.NoError(t, err)
		assert.Zero(t, loader.calls.Load())
	})
}

func TestFetchRaw(t *testing.T) {
	svc := newTestService(t, &rawFetcher{})
	raw, err := svc.FetchRaw(context.Background(), "Song", "Band")
	require.NoError(t, err)
	assert.Equal(t, "raw", raw.PlainLyrics)

	plain := newTestService(t, &fakeFetcher{data: map[string]*models.LyricsData{"Song": {PlainLyrics: "la"}}})
	raw, err = plain.FetchRaw(context.Background(), "Song", "Band")
	require.NoError(t, err)
	assert.Equal(t, "la", raw.PlainLyrics)
}

func TestDefaultStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "svc.sqlite3")
	svc, err := NewService(WithLogger(logger.Nop()), WithDBPath(dbPath), WithFetcher(&fakeFetcher{}))
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.Offsets().SetTrackOffset(ctx, "Band", "Song", 0.4))
	v, err := svc.Offsets().TotalOffset(ctx, "band", "song")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v, 1e-9)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Outcome
		msg  string
	}{
		{nil, OutcomeLyrics, ""},
		{fmt.Errorf("x: %w", ErrCancelled), OutcomeCancelled, ""},
		{context.Canceled, OutcomeCancelled, ""},
		{ErrNoDataFound, OutcomeEmpty, "No lyrics found for this track."},
		{fmt.Errorf("lrclib: %w", ErrNetwork), OutcomeError, "Could not reach the lyrics service. Try again."},
		{errors.New("boom"), OutcomeError, "Something went wrong while loading lyrics. Try again."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
		assert.Equal(t, tc.msg, UserMessage(tc.err), "%v", tc.err)
	}
}

func TestReexportedAlgorithms(t *testing.T) {
	lines := ParseLRC("[00:01.00]a b\n[00:03.00]c")
	require.Len(t, lines, 2)

	aligned, err := AlignPlainText("a\nb", AlignOptions{TotalDurationSec: 4})
	require.NoError(t, err)
	require.Len(t, aligned, 2)

	words := GenerateWordTimings(lines[0])
	assert.Len(t, words, 2)

	m := CompareAlignments(aligned, aligned)
	assert.Equal(t, 2, m.Matched)
	assert.Zero(t, m.MAE)
}

func TestNewServiceFromConfig(t *testing.T) {
	t.Setenv("LYRYC_DB_PATH", filepath.Join(t.TempDir(), "env.sqlite3"))
	t.Setenv("LYRYC_CACHE_BACKEND", "memory")
	t.Setenv("LYRYC_CONFIDENCE_THRESHOLD", "0.75")
	cfg := config.FromEnv()

	f := &fakeFetcher{data: map[string]*models.LyricsData{"Song": {SyncedLyrics: syncedPayload}}}
	svc, err := NewServiceFromConfig(context.Background(), cfg, WithLogger(logger.Nop()), WithFetcher(f))
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 0.75, svc.cfg.ConfidenceThreshold)
	assert.IsType(t, &storage.MemoryCache{}, svc.cache)

	_, err = svc.ProcessTrackLyrics(context.Background(), Request{Title: "Song", Artist: "Band"})
	require.NoError(t, err)

	t.Setenv("LYRYC_CACHE_BACKEND", "floppy")
	_, err = NewServiceFromConfig(context.Background(), config.FromEnv(), WithLogger(logger.Nop()))
	assert.Error(t, err)
}
