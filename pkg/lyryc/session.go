package lyryc

import (
	"context"
	"sync"

	"github.com/Error0229/Lyryc-sub000/internal/clock"
	"github.com/Error0229/Lyryc-sub000/internal/offset"
	"github.com/Error0229/Lyryc-sub000/internal/reporter"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Session follows one player: reporter events move the clock, and a track
// change starts a lyrics request that supersedes the previous one.
type Session struct {
	ctx     context.Context
	svc     *Service
	clk     *clock.Clock
	publish func(*Result)
	wg      sync.WaitGroup

	mu      sync.RWMutex
	track   models.TrackInfo
	loaded  bool // a track has been seen
	result  *Result
	lastErr error
}

// PlaybackState is a snapshot of the session for display.
type PlaybackState struct {
	Track        models.TrackInfo `json:"track"`
	Playing      bool             `json:"playing"`
	Position     float64          `json:"position"`
	Offset       float64          `json:"offset"`
	Adjusted     float64          `json:"adjusted"`
	LineIndex    int              `json:"lineIndex"`
	Line         string           `json:"line,omitempty"`
	WordIndex    int              `json:"wordIndex"`
	WordProgress float64          `json:"wordProgress"`
	Method       Method           `json:"method,omitempty"`
	Outcome      Outcome          `json:"outcome,omitempty"`
	Message      string           `json:"message,omitempty"`
}

// NewSession ties svc and clk together. Lyrics requests run under ctx;
// publish, when set, receives every accepted result.
func NewSession(ctx context.Context, svc *Service, clk *clock.Clock, publish func(*Result)) *Session {
	if clk == nil {
		clk = svc.cfg.Clock
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Session{ctx: ctx, svc: svc, clk: clk, publish: publish}
}

// Clock returns the session's playback clock.
func (s *Session) Clock() *clock.Clock { return s.clk }

func sameTrack(a, b models.TrackInfo) bool {
	return offset.Key(a.Artist, a.Title) == offset.Key(b.Artist, b.Title)
}

// HandleEvent implements reporter.Handler.
func (s *Session) HandleEvent(_ context.Context, ev reporter.Event) {
	tr := ev.Track
	info := models.TrackInfo{Title: tr.Title, Artist: tr.Artist, Thumbnail: tr.Thumbnail, URL: tr.URL}
	if tr.Duration != nil {
		info.DurationSec = *tr.Duration
	}
	pos, hasPos := tr.Position()

	playing := tr.IsPlaying
	if ev.Type == reporter.TypeTrackPaused || ev.Type == reporter.TypeTrackStopped {
		playing = false
	}

	s.mu.Lock()
	changed := tr.Title != "" && (!s.loaded || !sameTrack(s.track, info))
	if changed {
		s.track = info
		s.loaded = true
		s.result = nil
		s.lastErr = nil
	}
	s.mu.Unlock()

	switch {
	case tr.PlaybackRate != nil:
		s.clk.SetRate(*tr.PlaybackRate)
	case changed:
		s.clk.SetRate(1)
	}

	wasPlaying := s.clk.State() == clock.Running
	switch {
	case changed || ev.Type == reporter.TypeTrackStopped || (ev.Type == reporter.TypeTrackSeeked && hasPos):
		if !hasPos {
			pos = 0
		}
		s.clk.Discontinuity(pos)
		s.clk.OnPlayStateChange(playing)
	case hasPos && playing != wasPlaying:
		// pausing: freeze first, then snap; resuming: snap, then run
		if !playing {
			s.clk.OnPlayStateChange(false)
			s.clk.SyncExternal(pos)
		} else {
			s.clk.SyncExternal(pos)
			s.clk.OnPlayStateChange(true)
		}
	case hasPos:
		s.clk.SyncExternal(pos)
	default:
		s.clk.OnPlayStateChange(playing)
	}

	if changed {
		s.load(info)
	}
}

func (s *Session) load(info models.TrackInfo) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		req := Request{Title: info.Title, Artist: info.Artist, DurationSec: info.DurationSec, AudioURL: info.URL}
		res, err := s.svc.Submit(s.ctx, req)

		s.mu.Lock()
		current := sameTrack(s.track, info)
		if current && Classify(err) != OutcomeCancelled {
			s.lastErr = err
			if err == nil {
				s.result = res
			}
		}
		s.mu.Unlock()

		switch {
		case err != nil && Classify(err) == OutcomeCancelled:
			s.svc.log.Debugf("Lyrics request for %q dropped: %v", info.Title, err)
		case err != nil:
			s.svc.log.Warnf("Lyrics request for %q failed: %v", info.Title, err)
		case current && s.publish != nil:
			s.publish(res)
		}
	}()
}

// Wait blocks until every started lyrics request has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Result returns the lyrics for the current track, nil while loading.
func (s *Session) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.clone()
}

// State snapshots track, clock and the line being sung at the
// offset-adjusted clock time.
func (s *Session) State(ctx context.Context) PlaybackState {
	s.mu.RLock()
	track, res, lastErr := s.track, s.result, s.lastErr
	s.mu.RUnlock()

	st := PlaybackState{
		Track:     track,
		Playing:   s.clk.State() == clock.Running,
		Position:  s.clk.CurrentTime(),
		LineIndex: -1,
		WordIndex: -1,
	}
	st.Adjusted = st.Position
	if track.Title != "" {
		if off, err := s.svc.Offsets().TotalOffset(ctx, track.Artist, track.Title); err == nil {
			st.Offset = off
			st.Adjusted += off
		}
	}

	switch {
	case lastErr != nil:
		st.Outcome = Classify(lastErr)
		st.Message = UserMessage(lastErr)
	case res != nil:
		st.Outcome = res.Outcome()
		st.Method = res.Method
	}
	if res == nil {
		return st
	}

	st.LineIndex = models.CurrentLineIndex(res.Lyrics, st.Adjusted)
	if st.LineIndex < 0 {
		return st
	}
	line := res.Lyrics[st.LineIndex]
	st.Line = line.Text
	st.WordIndex = models.CurrentWordIndex(line.Words, st.Adjusted)
	if st.WordIndex >= 0 {
		st.WordProgress = models.WordProgress(line.Words[st.WordIndex], st.Adjusted)
	}
	return st
}
