// Package align distributes a time budget over untimed lyrics: whole lines
// over a track, words over a line, and compares two alignments.
package align

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Tunables
const (
	DefaultMinLineDuration = 1.0
	DefaultMaxLineDuration = 8.0

	minLineWeight      = 0.5
	charsPerWeight     = 12.0
	maxLengthWeight    = 6.0
	punctuationWeight  = 0.5
	longWordWeight     = 0.3
	longWordRunes      = 7
	hookWeight         = 1.0
	maxSymbolWeight    = 1.0
	symbolDensityScale = 4.0
)

// ErrInvalidOptions is returned for option combinations that cannot describe
// a valid alignment (negative bounds, min above max).
var ErrInvalidOptions = errors.New("align: invalid options")

var (
	sectionMarkerRe = regexp.MustCompile(`^\s*[\[{][^\]}]*[\]}]\s*$`)
	hookRe          = regexp.MustCompile(`(?i)\b(chorus|hook|refrain|repeat|x\d)\b`)
)

// pausePunctuation marks characters that imply a breath or pause.
const pausePunctuation = ".,;:!?…、。，！？；：—–"

// Options controls AlignPlainText. Zero bounds fall back to the defaults.
type Options struct {
	TotalDurationSec   float64
	MinLineDurationSec float64
	MaxLineDurationSec float64
}

// DefaultOptions returns the default bounds for a track of the given length.
func DefaultOptions(totalDurationSec float64) Options {
	return Options{
		TotalDurationSec:   totalDurationSec,
		MinLineDurationSec: DefaultMinLineDuration,
		MaxLineDurationSec: DefaultMaxLineDuration,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.MinLineDurationSec == 0 {
		o.MinLineDurationSec = DefaultMinLineDuration
	}
	if o.MaxLineDurationSec == 0 {
		o.MaxLineDurationSec = DefaultMaxLineDuration
	}
	if o.MinLineDurationSec < 0 || o.MaxLineDurationSec < 0 {
		return o, fmt.Errorf("%w: negative line bounds", ErrInvalidOptions)
	}
	if o.MinLineDurationSec > o.MaxLineDurationSec {
		return o, fmt.Errorf("%w: min %.3f > max %.3f", ErrInvalidOptions, o.MinLineDurationSec, o.MaxLineDurationSec)
	}
	return o, nil
}

// SplitLines returns the sung lines of a plain-text payload: blank lines and
// bracketed section markers such as [Chorus] are dropped.
func SplitLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" || sectionMarkerRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// LineWeight scores how long a line is likely to take to sing.
func LineWeight(line string) float64 {
	n := utf8.RuneCountInString(line)
	if n == 0 {
		return minLineWeight
	}

	w := 1.0
	w += math.Min(float64(n)/charsPerWeight, maxLengthWeight)

	symbols := 0
	for _, r := range line {
		if strings.ContainsRune(pausePunctuation, r) {
			w += punctuationWeight
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}

	for _, word := range strings.Fields(line) {
		if utf8.RuneCountInString(strings.TrimFunc(word, isNotWordRune)) >= longWordRunes {
			w += longWordWeight
		}
	}

	if hookRe.MatchString(line) {
		w += hookWeight
	}

	density := float64(symbols) / float64(n)
	w += math.Min(density*symbolDensityScale, maxSymbolWeight)

	return math.Max(w, minLineWeight)
}

// AlignPlainText spreads untimed lines over opts.TotalDurationSec.
//
// Each line gets a share proportional to its weight, clamped into
// [MinLineDurationSec, MaxLineDurationSec]. The clamped durations are then
// rescaled by one uniform factor so they sum to the total again, and the
// floating point remainder goes onto the last line so the sequence ends
// exactly at the total. Empty input or a non-positive total yields an empty
// result.
func AlignPlainText(text string, opts Options) ([]models.AlignedLine, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	lines := SplitLines(text)
	if len(lines) == 0 || opts.TotalDurationSec <= 0 || math.IsNaN(opts.TotalDurationSec) || math.IsInf(opts.TotalDurationSec, 0) {
		return []models.AlignedLine{}, nil
	}

	weights := make([]float64, len(lines))
	var sum float64
	for i, l := range lines {
		weights[i] = LineWeight(l)
		sum += weights[i]
	}

	durations := make([]float64, len(lines))
	for i, w := range weights {
		durations[i] = clamp(opts.TotalDurationSec*w/sum, opts.MinLineDurationSec, opts.MaxLineDurationSec)
	}
	rescale(durations, opts.TotalDurationSec)
	if !withinBounds(durations, opts) && feasible(len(durations), opts) {
		redistribute(durations, opts)
	}

	out := make([]models.AlignedLine, len(lines))
	t := 0.0
	for i, l := range lines {
		out[i] = models.AlignedLine{Time: t, Text: l, Duration: durations[i]}
		t += durations[i]
	}
	last := &out[len(out)-1]
	last.Duration = opts.TotalDurationSec - last.Time
	return out, nil
}

func rescale(durations []float64, total float64) {
	var sum float64
	for _, d := range durations {
		sum += d
	}
	if sum <= 0 {
		return
	}
	f := total / sum
	for i := range durations {
		durations[i] *= f
	}
}

func withinBounds(durations []float64, opts Options) bool {
	const tol = 1e-9
	for _, d := range durations {
		if d < opts.MinLineDurationSec-tol || d > opts.MaxLineDurationSec+tol {
			return false
		}
	}
	return true
}

func feasible(n int, opts Options) bool {
	return float64(n)*opts.MinLineDurationSec <= opts.TotalDurationSec &&
		float64(n)*opts.MaxLineDurationSec >= opts.TotalDurationSec
}

// redistribute pins lines that the uniform rescale pushed out of bounds and
// rescales the remaining ones, until every line fits. Only called when the
// total is reachable within the bounds.
func redistribute(durations []float64, opts Options) {
	pinned := make([]bool, len(durations))
	for iter := 0; iter < len(durations); iter++ {
		var pinnedSum, freeSum float64
		for i, d := range durations {
			if pinned[i] {
				pinnedSum += d
			} else {
				freeSum += d
			}
		}
		if freeSum <= 0 {
			return
		}
		f := (opts.TotalDurationSec - pinnedSum) / freeSum
		changed := false
		for i := range durations {
			if pinned[i] {
				continue
			}
			durations[i] *= f
			if c := clamp(durations[i], opts.MinLineDurationSec, opts.MaxLineDurationSec); c != durations[i] {
				durations[i] = c
				pinned[i] = true
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isNotWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
