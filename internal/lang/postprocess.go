package lang

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Minimum word durations in seconds.
var minWordDuration = map[string]float64{
	English:  0.08,
	German:   0.12,
	Japanese: 0.15,
	Chinese:  0.15,
	Korean:   0.15,
}

const defaultMinWordDuration = 0.1

// contiguityEps tolerates float noise when checking that words touch.
const contiguityEps = 1e-6

var (
	spaceRunRe       = regexp.MustCompile(`[ \t\x{3000}]+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([,.!?;:…])`)
	frenchHighPunct  = regexp.MustCompile(`\s*([!?;:])`)
	cjkSpaceRe       = regexp.MustCompile(`\s*([、。，！？「」『』（）])\s*`)
)

// MinWordDuration returns the shortest span a word may get in lang.
func MinWordDuration(lang string) float64 {
	if d, ok := minWordDuration[lang]; ok {
		return d
	}
	return defaultMinWordDuration
}

// PostProcess applies the language rules to every line in place: text
// spacing fixes and minimum word durations.
func PostProcess(lines []models.LyricLine, lang string) {
	for i := range lines {
		lines[i].Text = FixSpacing(lines[i].Text, lang)
		ApplyMinWordDurations(&lines[i], MinWordDuration(lang))
	}
}

// FixSpacing normalises a line to NFC and tidies whitespace around
// punctuation. French keeps its narrow space before high punctuation.
func FixSpacing(text, lang string) string {
	s := norm.NFC.String(text)
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	switch {
	case lang == French:
		s = spaceBeforePunct.ReplaceAllString(s, "$1")
		s = frenchHighPunct.ReplaceAllString(s, " $1")
	case IsCJK(lang) && lang != Korean:
		s = cjkSpaceRe.ReplaceAllString(s, "$1")
	default:
		s = spaceBeforePunct.ReplaceAllString(s, "$1")
	}
	return s
}

// ApplyMinWordDurations lengthens words shorter than minDur by borrowing from
// the longer words of the same line, keeping the first start and last end.
// Only lines whose words are contiguous are touched; when the line is too
// short for every word to reach minDur, words become equal.
func ApplyMinWordDurations(line *models.LyricLine, minDur float64) {
	words := line.Words
	n := len(words)
	if n < 2 || minDur <= 0 || !contiguous(words) {
		return
	}

	start, end := words[0].Start, words[n-1].End
	total := end - start
	if total <= 0 {
		return
	}

	spans := make([]float64, n)
	for i, w := range words {
		spans[i] = w.End - w.Start
	}

	if float64(n)*minDur >= total {
		for i := range spans {
			spans[i] = total / float64(n)
		}
	} else {
		// pin short words at min and shrink the free ones proportionally
		pinned := make([]bool, n)
		for iter := 0; iter < n; iter++ {
			var pinnedSum, freeSum float64
			for i, s := range spans {
				if pinned[i] {
					pinnedSum += s
				} else {
					freeSum += s
				}
			}
			if freeSum <= 0 {
				break
			}
			f := (total - pinnedSum) / freeSum
			changed := false
			for i := range spans {
				if pinned[i] {
					continue
				}
				spans[i] *= f
				if spans[i] < minDur {
					spans[i] = minDur
					pinned[i] = true
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	t := start
	for i := range words {
		words[i].Start = t
		t += spans[i]
		words[i].End = t
	}
	words[n-1].End = end
}

func contiguous(words []models.WordTiming) bool {
	for i, w := range words {
		if w.IsOpen() || w.End < w.Start {
			return false
		}
		if i > 0 {
			d := w.Start - words[i-1].End
			if d > contiguityEps || d < -contiguityEps {
				return false
			}
		}
	}
	return true
}
