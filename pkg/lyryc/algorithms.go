package lyryc

import (
	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// AlignOptions bounds the plain-text aligner.
type AlignOptions = align.Options

// ParseLRC parses an LRC payload, skipping malformed lines.
func ParseLRC(text string) []models.LyricLine {
	return lrc.Parse(text)
}

// AlignPlainText spreads untimed lines over opts.TotalDurationSec.
func AlignPlainText(text string, opts AlignOptions) ([]models.AlignedLine, error) {
	return align.AlignPlainText(text, opts)
}

// GenerateWordTimings splits a line into words sharing its duration.
func GenerateWordTimings(line models.LyricLine) []models.WordTiming {
	return align.GenerateWordTimings(line)
}

// CompareAlignments measures how far a is from the reference b.
func CompareAlignments(a, b []models.AlignedLine) models.AlignmentMetrics {
	return align.CompareAlignments(a, b)
}
