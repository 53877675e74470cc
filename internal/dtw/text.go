package dtw

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/features"
)

// TextFeatureSize matches the MFCC vector so both sides of the cost matrix
// share one space after normalisation.
const TextFeatureSize = features.MFCCSize

// TextFeatures maps a line to a fixed size vector describing how it is
// likely to sound: length, articulation class mix, pauses and syllables.
func TextFeatures(line, lang string) []float64 {
	v := make([]float64, TextFeatureSize)

	letters := 0
	var counts [Liquid + 1]int
	codeSum := 0
	punct := 0
	for _, r := range line {
		if unicode.IsPunct(r) {
			punct++
		}
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			continue
		}
		p := Lookup(lang, r)
		counts[p.Class]++
		codeSum += p.Code
		letters++
	}

	words := align.Tokenize(line)
	long := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 7 {
			long++
		}
	}

	ratio := func(c Class) float64 {
		if letters == 0 {
			return 0
		}
		return float64(counts[c]) / float64(letters)
	}

	v[0] = math.Log1p(float64(utf8.RuneCountInString(strings.TrimSpace(line))))
	v[1] = math.Log1p(float64(len(words)))
	v[2] = ratio(Vowel)
	v[3] = ratio(Plosive)
	v[4] = ratio(Fricative)
	v[5] = ratio(Nasal)
	v[6] = ratio(Liquid)
	v[7] = ratio(Other)
	v[8] = float64(punct)
	if letters > 0 {
		v[9] = float64(codeSum) / float64(letters) / 1000
	}
	v[10] = syllables(counts[Vowel], letters, lang)
	if len(words) > 0 {
		v[11] = float64(long) / float64(len(words))
	}
	v[12] = align.LineWeight(line) / 10
	return v
}

// syllables estimates the sung syllable count. Syllabic scripts count one
// per character.
func syllables(vowels, letters int, lang string) float64 {
	switch lang {
	case Japanese, Korean, Chinese:
		return float64(letters)
	}
	if vowels == 0 && letters > 0 {
		return 1
	}
	return float64(vowels)
}

// TextMatrix builds one feature vector per line.
func TextMatrix(lines []string, lang string) [][]float64 {
	out := make([][]float64, len(lines))
	for i, l := range lines {
		out[i] = TextFeatures(l, lang)
	}
	return out
}

// ZNormalize rescales every column of m to zero mean and unit variance in
// place. Constant columns become zero.
func ZNormalize(m [][]float64) {
	if len(m) == 0 {
		return
	}
	dims := len(m[0])
	for d := 0; d < dims; d++ {
		var mean float64
		for _, row := range m {
			mean += row[d]
		}
		mean /= float64(len(m))

		var variance float64
		for _, row := range m {
			diff := row[d] - mean
			variance += diff * diff
		}
		std := math.Sqrt(variance / float64(len(m)))

		for _, row := range m {
			if std < 1e-12 {
				row[d] = 0
				continue
			}
			row[d] = (row[d] - mean) / std
		}
	}
}
