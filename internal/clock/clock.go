// Package clock keeps a locally interpolated playback position in step with
// an external player that reports its position only now and then.
package clock

import (
	"context"
	"math"
	"sync"
	"time"
)

// State of the clock.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Correction is what a sync did to the displayed value.
type Correction int

const (
	// CorrectionNone: the report matched the local value exactly.
	CorrectionNone Correction = iota
	// CorrectionSoft: the sync reference moved, the displayed value did not.
	CorrectionSoft
	// CorrectionHard: the displayed value snapped to the report.
	CorrectionHard
)

func (c Correction) String() string {
	switch c {
	case CorrectionSoft:
		return "soft"
	case CorrectionHard:
		return "hard"
	default:
		return "none"
	}
}

// Config tunes the clock. Zero fields take defaults.
type Config struct {
	TickInterval   time.Duration
	CheckInterval  time.Duration
	DriftThreshold float64 // seconds
	// SlewPerSec is the fraction of the remaining gap to the sync reference
	// closed per second of playback after a soft correction. Zero keeps
	// ticks at exactly elapsed x rate and leaves the gap to Check.
	SlewPerSec float64
}

// DefaultConfig ticks every 50ms, checks drift every second and snaps
// when local and reported positions differ by half a second or more.
func DefaultConfig() Config {
	return Config{
		TickInterval:   50 * time.Millisecond,
		CheckInterval:  time.Second,
		DriftThreshold: 0.5,
	}
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the real-time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithOnTick registers a callback receiving the displayed value after each
// tick. It runs on the ticking goroutine without the clock's lock held.
func WithOnTick(fn func(pos float64)) Option {
	return func(c *Clock) { c.onTick = fn }
}

// WithConfig overrides the defaults.
func WithConfig(cfg Config) Option {
	return func(c *Clock) { c.cfg = cfg }
}

// Clock is safe for concurrent use.
type Clock struct {
	cfg    Config
	now    func() time.Time
	onTick func(float64)

	mu       sync.Mutex
	state    State
	rate     float64
	current  float64   // displayed value
	lastTick time.Time // when current was last advanced

	// sync reference: position anchorPos at real instant anchorAt
	anchorPos float64
	anchorAt  time.Time

	reported float64 // last external position
}

// New creates an idle clock at position zero.
func New(opts ...Option) *Clock {
	c := &Clock{cfg: DefaultConfig(), now: time.Now, rate: 1}
	for _, opt := range opts {
		opt(c)
	}
	def := DefaultConfig()
	if c.cfg.TickInterval <= 0 {
		c.cfg.TickInterval = def.TickInterval
	}
	if c.cfg.CheckInterval <= 0 {
		c.cfg.CheckInterval = def.CheckInterval
	}
	if c.cfg.DriftThreshold <= 0 {
		c.cfg.DriftThreshold = def.DriftThreshold
	}
	if c.cfg.SlewPerSec < 0 {
		c.cfg.SlewPerSec = 0
	}
	t := c.now()
	c.lastTick, c.anchorAt = t, t
	return c
}

// State returns Idle or Running.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentTime returns the displayed position in seconds.
func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetRate changes the playback rate; the sync reference is re-taken so
// the change only affects time from now on.
func (c *Clock) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.advance(now)
	c.anchorPos, c.anchorAt = c.expected(now), now
	c.rate = rate
}

// Tick advances the displayed value by the real time elapsed since the
// previous tick times the playback rate, plus the configured slew toward
// the sync reference. It does nothing while idle.
func (c *Clock) Tick() float64 {
	c.mu.Lock()
	c.advance(c.now())
	pos, fn := c.current, c.onTick
	c.mu.Unlock()

	if fn != nil {
		fn(pos)
	}
	return pos
}

// advance must be called with mu held.
func (c *Clock) advance(now time.Time) {
	elapsed := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	if c.state != Running || elapsed <= 0 {
		return
	}
	c.current += elapsed * c.rate

	gap := c.expected(now) - c.current
	if gap != 0 && c.cfg.SlewPerSec > 0 {
		c.current += gap * math.Min(1, c.cfg.SlewPerSec*elapsed)
	}
	if c.current < 0 {
		c.current = 0
	}
}

// expected is where the sync reference says playback is at now.
func (c *Clock) expected(now time.Time) float64 {
	if c.state != Running {
		return c.anchorPos
	}
	return c.anchorPos + now.Sub(c.anchorAt).Seconds()*c.rate
}

// SyncExternal feeds a reported position. While running, a drift at or
// above the threshold snaps the displayed value to pos; a smaller drift
// only re-anchors the sync reference. While idle the value always snaps.
func (c *Clock) SyncExternal(pos float64) Correction {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.reported = pos
	if c.state != Running {
		c.snap(pos, now)
		return CorrectionHard
	}

	c.advance(now)
	drift := math.Abs(c.current - pos)
	switch {
	case drift >= c.cfg.DriftThreshold:
		c.snap(pos, now)
		return CorrectionHard
	case drift == 0:
		c.anchorPos, c.anchorAt = pos, now
		return CorrectionNone
	default:
		c.anchorPos, c.anchorAt = pos, now
		return CorrectionSoft
	}
}

// Check compares the displayed value with the sync reference and snaps
// when they have drifted apart by the threshold or more.
func (c *Clock) Check() Correction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return CorrectionNone
	}
	now := c.now()
	c.advance(now)
	exp := c.expected(now)
	if math.Abs(c.current-exp) >= c.cfg.DriftThreshold {
		c.snap(exp, now)
		return CorrectionHard
	}
	return CorrectionNone
}

// OnPlayStateChange switches between Running and Idle. Both transitions
// snap to the last reported position and take a fresh sync reference.
func (c *Clock) OnPlayStateChange(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if playing && c.state == Running {
		return
	}
	c.advance(now)
	if playing {
		c.state = Running
	} else {
		c.state = Idle
	}
	c.snap(c.reported, now)
}

// Discontinuity handles a seek or track change: snap to pos immediately,
// never interpolating across the jump.
func (c *Clock) Discontinuity(pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reported = pos
	c.snap(pos, c.now())
}

// snap must be called with mu held.
func (c *Clock) snap(pos float64, now time.Time) {
	if pos < 0 {
		pos = 0
	}
	c.current = pos
	c.anchorPos, c.anchorAt = pos, now
	c.lastTick = now
}

// Run ticks and checks on the configured cadence until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	tick := time.NewTicker(c.cfg.TickInterval)
	defer tick.Stop()
	check := time.NewTicker(c.cfg.CheckInterval)
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			c.Tick()
		case <-check.C:
			c.Check()
		}
	}
}
