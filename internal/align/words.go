package align

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

const (
	wordBaseWeight     = 1.0
	wordCharWeight     = 0.1
	wordVowelWeight    = 0.3
	wordClusterWeight  = 0.2
	wordNonWordWeight  = 0.1
	stopwordMultiplier = 0.7
)

var (
	consonantClusterRe = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxz]{2,}`)
	stopwords          = map[string]struct{}{
		"a": {}, "an": {}, "the": {}, "in": {}, "on": {}, "at": {},
		"to": {}, "of": {}, "and": {}, "or": {}, "but": {},
	}
)

// Tokenize splits lyric text into timed units: whitespace separated words,
// with ideographic and kana runs split per character since those scripts
// are written without spaces.
func Tokenize(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		var buf strings.Builder
		for _, r := range field {
			if isPerRuneScript(r) {
				if buf.Len() > 0 {
					out = append(out, buf.String())
					buf.Reset()
				}
				out = append(out, string(r))
				continue
			}
			buf.WriteRune(r)
		}
		if buf.Len() > 0 {
			out = append(out, buf.String())
		}
	}
	return out
}

func isPerRuneScript(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}

// WordWeight scores how long a single word is likely to take.
func WordWeight(word string) float64 {
	w := wordBaseWeight + wordCharWeight*float64(utf8.RuneCountInString(word))

	for _, r := range word {
		if isVowel(r) {
			w += wordVowelWeight
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			w += wordNonWordWeight
		}
	}
	w += wordClusterWeight * float64(len(consonantClusterRe.FindAllString(word, -1)))

	key := strings.ToLower(strings.TrimFunc(word, isNotWordRune))
	if _, ok := stopwords[key]; ok {
		w *= stopwordMultiplier
	}
	return w
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u',
		'á', 'é', 'í', 'ó', 'ú', 'à', 'è', 'ì', 'ò', 'ù',
		'â', 'ê', 'î', 'ô', 'û', 'ä', 'ë', 'ï', 'ö', 'ü':
		return true
	}
	return false
}

// GenerateWordTimings splits a line into contiguous words spanning exactly
// [line.Time, line.Time+line.Duration]. A line without words or without a
// positive duration yields an empty slice.
func GenerateWordTimings(line models.LyricLine) []models.WordTiming {
	return SpreadWords(Tokenize(line.Text), line.Time, line.Duration)
}

// SpreadWords distributes duration over words by WordWeight. Words are
// contiguous and the last one ends exactly at start+duration. A line with
// no duration (duplicate LRC stamps) gets no words rather than zero-width
// ones, so it renders without word highlighting.
func SpreadWords(words []string, start, duration float64) []models.WordTiming {
	if len(words) == 0 || duration <= 0 {
		return []models.WordTiming{}
	}

	weights := make([]float64, len(words))
	var total float64
	for i, w := range words {
		weights[i] = WordWeight(w)
		total += weights[i]
	}

	out := make([]models.WordTiming, len(words))
	t := start
	for i, w := range words {
		span := duration * weights[i] / total
		out[i] = models.WordTiming{Start: t, End: t + span, Word: w}
		t += span
	}
	out[len(out)-1].End = start + duration
	return out
}

// CloseOpenWords gives every open-ended word an end: the next word's start
// inside the line, otherwise the line end. Words are not reordered.
func CloseOpenWords(line *models.LyricLine) {
	lineEnd := line.Time + line.Duration
	for i := range line.Words {
		w := &line.Words[i]
		if !w.IsOpen() {
			continue
		}
		end := lineEnd
		if i+1 < len(line.Words) {
			end = line.Words[i+1].Start
		}
		if end < w.Start {
			end = w.Start
		}
		w.End = end
	}
}
