package models

import "math"

// OpenEnd marks a word whose end time is not known yet (the last tagged
// word of an LRC line). The orchestrator closes it before returning lyrics.
const OpenEnd = -1.0

// DefaultLastLineDuration is used for a line with no successor (seconds).
const DefaultLastLineDuration = 3.0

// WordTiming is one word within a line. Times are seconds from track start.
type WordTiming struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// IsOpen reports whether the word end still has to be derived.
func (w WordTiming) IsOpen() bool {
	return w.End == OpenEnd
}

// LyricLine is one sung phrase.
//
// Duration is always filled by the parsers and aligners in this module. When
// Words is set the effective end of the line is the later of Time+Duration
// and the last word end, see EffectiveDuration.
type LyricLine struct {
	Time     float64      `json:"time"`
	Text     string       `json:"text"`
	Duration float64      `json:"duration"`
	Words    []WordTiming `json:"words,omitempty"`
}

// End returns Time + EffectiveDuration.
func (l LyricLine) End() float64 {
	return l.Time + l.EffectiveDuration()
}

// EffectiveDuration prefers the word-derived span when it is longer than the
// stated duration.
func (l LyricLine) EffectiveDuration() float64 {
	d := l.Duration
	if n := len(l.Words); n > 0 {
		last := l.Words[n-1]
		if !last.IsOpen() {
			d = math.Max(d, last.End-l.Time)
		}
	}
	return d
}

// HasWords reports whether the line carries word timings.
func (l LyricLine) HasWords() bool {
	return len(l.Words) > 0
}

// AlignedLine is the output of the plain-text aligner and the input of the
// comparator. Duration is always set.
type AlignedLine struct {
	Time     float64 `json:"time"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// AlignmentMetrics compares two alignments. Derived, never persisted.
type AlignmentMetrics struct {
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MeanOffset float64 `json:"meanOffset"`
	Matched    int     `json:"matched"`
}

// ToAligned drops word timings.
func ToAligned(lines []LyricLine) []AlignedLine {
	out := make([]AlignedLine, len(lines))
	for i, l := range lines {
		out[i] = AlignedLine{Time: l.Time, Text: l.Text, Duration: l.Duration}
	}
	return out
}

// FromAligned converts aligner output into lyric lines without words.
func FromAligned(lines []AlignedLine) []LyricLine {
	out := make([]LyricLine, len(lines))
	for i, l := range lines {
		out[i] = LyricLine{Time: l.Time, Text: l.Text, Duration: l.Duration}
	}
	return out
}
