package dtw

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/features"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// ErrRefinementUnavailable is returned whenever refinement cannot produce a
// result: bad input, failed feature extraction, no path, or a panic inside
// the numeric code. Callers fall back to heuristic timings.
var ErrRefinementUnavailable = errors.New("refinement unavailable")

// Tunables
const (
	DefaultConfidence = 0.5
	ConfidenceCapSec  = 5.0
	NudgeWindowSec    = 0.2
	// portion of the distance to the nearest energy trough a word boundary moves
	NudgeStrength = 0.5
)

// Config tunes a Refiner.
type Config struct {
	Options
	NudgeWindowSec float64
	NudgeStrength  float64
}

// DefaultConfig returns the full-matrix configuration.
func DefaultConfig() Config {
	return Config{NudgeWindowSec: NudgeWindowSec, NudgeStrength: NudgeStrength}
}

// Result is a refined alignment.
type Result struct {
	Lines      []models.LyricLine
	Confidence float64
	Cost       float64
	// Metrics against the reference, when one was given.
	Metrics *models.AlignmentMetrics
}

// Refiner aligns lyric lines to audio features.
type Refiner struct {
	cfg Config
}

// NewRefiner creates a Refiner; zero fields take the defaults.
func NewRefiner(cfg Config) *Refiner {
	if cfg.NudgeWindowSec <= 0 {
		cfg.NudgeWindowSec = NudgeWindowSec
	}
	if cfg.NudgeStrength <= 0 || cfg.NudgeStrength > 1 {
		cfg.NudgeStrength = NudgeStrength
	}
	return &Refiner{cfg: cfg}
}

// Refine re-times lines against feats. lang selects the phoneme table.
// reference, when non-empty, is used to score the result; without it the
// confidence is DefaultConfidence.
//
// Every failure, including a panic, is reported as ErrRefinementUnavailable
// (wrapping the cause) except context cancellation, which is returned as is.
func (r *Refiner) Refine(ctx context.Context, feats *features.Features, lines []models.LyricLine, lang string, reference []models.AlignedLine) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: panic: %v", ErrRefinementUnavailable, p)
		}
	}()

	if feats == nil || len(feats.Frames) == 0 || feats.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: no audio frames", ErrRefinementUnavailable)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no lines", ErrRefinementUnavailable)
	}
	if len(lines) > len(feats.Frames) {
		return nil, fmt.Errorf("%w: %d lines for %d frames", ErrRefinementUnavailable, len(lines), len(feats.Frames))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio := feats.MFCCMatrix()
	audioNorm := make([][]float64, len(audio))
	for i, row := range audio {
		audioNorm[i] = append([]float64(nil), row...)
	}
	ZNormalize(audioNorm)

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	text := TextMatrix(texts, lang)
	ZNormalize(text)

	path, cost, err := Path(ctx, audioNorm, text, r.cfg.Options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRefinementUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	starts := lineTimes(LineStarts(path, len(lines)), feats)
	energy := feats.Energy()

	out := make([]models.LyricLine, len(lines))
	for i, l := range lines {
		start := starts[i]
		dur := l.Duration
		if i+1 < len(lines) {
			dur = starts[i+1] - start
		} else if dur <= 0 {
			dur = models.DefaultLastLineDuration
		}
		out[i] = models.LyricLine{Time: start, Text: l.Text, Duration: dur}
		if l.HasWords() {
			out[i].Words = rescaleWords(l, start, dur)
		} else {
			out[i].Words = r.nudgedWords(align.Tokenize(l.Text), start, dur, energy, feats.FrameRate)
		}
	}

	res = &Result{Lines: out, Confidence: DefaultConfidence, Cost: cost}
	if len(reference) > 0 {
		m := align.CompareAlignments(models.ToAligned(out), reference)
		res.Metrics = &m
		res.Confidence = Confidence(m)
	}
	return res, nil
}

// Confidence maps comparator metrics to [0, 1].
func Confidence(m models.AlignmentMetrics) float64 {
	if m.Matched == 0 {
		return DefaultConfidence
	}
	return math.Max(0, 1-m.MAE/ConfidenceCapSec)
}

// lineTimes converts start frames into seconds, keeps them strictly
// increasing by at least one frame and no later than the last frame.
// len(frames) must not exceed the frame count.
func lineTimes(frames []int, feats *features.Features) []float64 {
	out := make([]float64, len(frames))
	step := feats.FrameTime(1)
	prev := -step
	for i, f := range frames {
		t := feats.FrameTime(max(f, 0))
		if t <= prev {
			t = prev + step
		}
		out[i] = t
		prev = t
	}

	limit := feats.FrameTime(len(feats.Frames) - 1)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] > limit {
			out[i] = limit
		}
		limit = out[i] - step
	}
	return out
}

// rescaleWords maps existing word timings linearly into the new window.
func rescaleWords(l models.LyricLine, start, dur float64) []models.WordTiming {
	src := l
	align.CloseOpenWords(&src)
	oldDur := src.EffectiveDuration()
	words := make([]models.WordTiming, len(src.Words))
	for i, w := range src.Words {
		words[i] = w
		if oldDur > 0 {
			words[i].Start = start + (w.Start-src.Time)/oldDur*dur
			words[i].End = start + (w.End-src.Time)/oldDur*dur
		} else {
			words[i].Start, words[i].End = start, start+dur
		}
	}
	if n := len(words); n > 0 {
		words[0].Start = start
		words[n-1].End = start + dur
	}
	return words
}

// nudgedWords spreads words by weight, then moves each interior boundary
// toward the nearest energy trough within the nudge window and clamps the
// boundaries so words stay strictly increasing inside [start, start+dur].
func (r *Refiner) nudgedWords(tokens []string, start, dur float64, energy []float64, frameRate float64) []models.WordTiming {
	words := align.SpreadWords(tokens, start, dur)
	n := len(words)
	if n < 2 {
		return words
	}

	bounds := make([]float64, n+1)
	bounds[0] = start
	for i := 1; i < n; i++ {
		b := words[i].Start
		if e, ok := features.NearestExtremum(energy, frameRate, b, r.cfg.NudgeWindowSec, features.Trough); ok {
			b += (e.Time - b) * r.cfg.NudgeStrength
		}
		bounds[i] = b
	}
	bounds[n] = start + dur

	gap := math.Min(0.01, dur/float64(2*n))
	for i := 1; i < n; i++ {
		lo := bounds[i-1] + gap
		hi := bounds[n] - float64(n-i)*gap
		if bounds[i] < lo {
			bounds[i] = lo
		}
		if bounds[i] > hi {
			bounds[i] = hi
		}
	}

	for i := range words {
		words[i].Start = bounds[i]
		words[i].End = bounds[i+1]
	}
	return words
}
