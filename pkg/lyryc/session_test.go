package lyryc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Error0229/Lyryc-sub000/internal/clock"
	"github.com/Error0229/Lyryc-sub000/internal/reporter"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

func f64(v float64) *float64 { return &v }

type published struct {
	mu  sync.Mutex
	got []*Result
}

func (p *published) add(r *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, r)
}

func (p *published) titles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.got))
	for i, r := range p.got {
		out[i] = r.Track.Title
	}
	return out
}

func newTestSession(t *testing.T, f Fetcher) (*Session, *published) {
	t.Helper()
	svc := newTestService(t, f)
	// frozen time keeps the clock exactly at the reported positions
	at := time.Unix(1_700_000_000, 0)
	clk := clock.New(clock.WithNow(func() time.Time { return at }))
	pub := &published{}
	return NewSession(context.Background(), svc, clk, pub.add), pub
}

func event(t reporter.MessageType, title string, playing bool, pos *float64) reporter.Event {
	return reporter.Event{
		Type:     t,
		ClientID: "test",
		Track:    reporter.TrackUpdate{Title: title, Artist: "Band", IsPlaying: playing, CurrentTime: pos},
		Received: time.Now(),
	}
}

func TestSessionFollowsPlayer(t *testing.T) {
	f := &fakeFetcher{data: map[string]*models.LyricsData{
		"Song":  {SyncedLyrics: syncedPayload},
		"Other": {SyncedLyrics: "[00:02.00]other song"},
	}}
	s, pub := newTestSession(t, f)
	ctx := context.Background()
	clk := s.Clock()

	s.HandleEvent(ctx, event(reporter.TypeTrackDetected, "Song", true, f64(5)))
	assert.Equal(t, clock.Running, clk.State())
	assert.Equal(t, 5.0, clk.CurrentTime())

	s.Wait()
	require.NotNil(t, s.Result())
	assert.Equal(t, []string{"Song"}, pub.titles())

	st := s.State(ctx)
	assert.True(t, st.Playing)
	assert.Equal(t, "Song", st.Track.Title)
	assert.Equal(t, 1, st.LineIndex)
	assert.Equal(t, "We sing along", st.Line)
	assert.Equal(t, MethodOriginal, st.Method)
	assert.Equal(t, OutcomeLyrics, st.Outcome)

	// progress on the same track does not reload
	s.HandleEvent(ctx, event(reporter.TypeTrackProgress, "Song", true, f64(5.2)))
	s.Wait()
	assert.EqualValues(t, 1, f.calls.Load())

	s.HandleEvent(ctx, event(reporter.TypeTrackPaused, "Song", true, f64(9)))
	assert.Equal(t, clock.Idle, clk.State())
	assert.Equal(t, 9.0, clk.CurrentTime())

	s.HandleEvent(ctx, event(reporter.TypeTrackProgress, "Song", true, f64(9.1)))
	assert.Equal(t, clock.Running, clk.State())
	assert.InDelta(t, 9.1, clk.CurrentTime(), 1e-9)

	s.HandleEvent(ctx, event(reporter.TypeTrackSeeked, "Song", true, f64(2)))
	assert.Equal(t, 2.0, clk.CurrentTime())
	assert.Equal(t, 0, s.State(ctx).LineIndex)

	// manual offsets shift the line lookup, not the clock
	require.NoError(t, s.svc.Offsets().SetTrackOffset(ctx, "band", "song", 3))
	st = s.State(ctx)
	assert.Equal(t, 2.0, st.Position)
	assert.Equal(t, 3.0, st.Offset)
	assert.Equal(t, 5.0, st.Adjusted)
	assert.Equal(t, 1, st.LineIndex)
	assert.GreaterOrEqual(t, st.WordIndex, 0)

	s.HandleEvent(ctx, event(reporter.TypeTrackDetected, "Other", true, nil))
	assert.Equal(t, 0.0, clk.CurrentTime())
	s.Wait()
	assert.Equal(t, []string{"Song", "Other"}, pub.titles())
	assert.Equal(t, "other song", s.Result().Lyrics[0].Text)

	s.HandleEvent(ctx, event(reporter.TypeTrackStopped, "Other", true, nil))
	assert.Equal(t, clock.Idle, clk.State())
	assert.Equal(t, 0.0, clk.CurrentTime())
}

func TestSessionFollowsPlaybackRate(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{data: map[string]*models.LyricsData{
		"Song":  {SyncedLyrics: syncedPayload},
		"Other": {SyncedLyrics: "[00:02.00]other song"},
	}})
	at := time.Unix(1_700_000_000, 0)
	clk := clock.New(clock.WithNow(func() time.Time { return at }))
	s := NewSession(context.Background(), svc, clk, func(*Result) {})
	ctx := context.Background()

	ev := event(reporter.TypeTrackDetected, "Song", true, f64(10))
	ev.Track.PlaybackRate = f64(1.5)
	s.HandleEvent(ctx, ev)
	s.Wait()

	at = at.Add(2 * time.Second)
	assert.InDelta(t, 13.0, clk.Tick(), 1e-9)

	// a new track without a reported rate plays at normal speed
	s.HandleEvent(ctx, event(reporter.TypeTrackDetected, "Other", true, f64(0)))
	s.Wait()
	at = at.Add(2 * time.Second)
	assert.InDelta(t, 2.0, clk.Tick(), 1e-9)
}

func TestSessionStateBeforeLyrics(t *testing.T) {
	s, _ := newTestSession(t, &fakeFetcher{})
	st := s.State(context.Background())
	assert.Equal(t, -1, st.LineIndex)
	assert.Equal(t, -1, st.WordIndex)
	assert.False(t, st.Playing)
	assert.Empty(t, st.Outcome)
}

func TestSessionReportsFailures(t *testing.T) {
	s, pub := newTestSession(t, &fakeFetcher{err: ErrNetwork})
	ctx := context.Background()

	s.HandleEvent(ctx, event(reporter.TypeTrackDetected, "Song", false, f64(0)))
	s.Wait()

	assert.Nil(t, s.Result())
	assert.Empty(t, pub.titles())
	st := s.State(ctx)
	assert.Equal(t, OutcomeError, st.Outcome)
	assert.Equal(t, "Could not reach the lyrics service. Try again.", st.Message)
}

func TestSessionEmptyLyrics(t *testing.T) {
	s, pub := newTestSession(t, &fakeFetcher{})
	ctx := context.Background()

	s.HandleEvent(ctx, event(reporter.TypeTrackDetected, "Unknown", true, f64(1)))
	s.Wait()

	assert.Equal(t, []string{"Unknown"}, pub.titles())
	st := s.State(ctx)
	assert.Equal(t, OutcomeEmpty, st.Outcome)
	assert.Equal(t, -1, st.LineIndex)
}

func TestSessionIgnoresUntitledEvents(t *testing.T) {
	f := &fakeFetcher{}
	s, _ := newTestSession(t, f)

	s.HandleEvent(context.Background(), event(reporter.TypeTrackProgress, "", true, f64(4)))
	s.Wait()
	assert.Zero(t, f.calls.Load())
	assert.Equal(t, clock.Running, s.Clock().State())
	assert.Equal(t, 4.0, s.Clock().CurrentTime())
}
