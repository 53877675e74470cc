// Package lang guesses the language of a lyric and applies small
// language-specific touches to its timings and text.
package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Language codes, shared with the phoneme tables.
const (
	English  = "en"
	Spanish  = "es"
	French   = "fr"
	German   = "de"
	Japanese = "ja"
	Korean   = "ko"
	Chinese  = "zh"
	Russian  = "ru"
	Arabic   = "ar"
	Hindi    = "hi"
)

var stopwords = map[string]map[string]struct{}{
	Spanish: set("el", "los", "las", "y", "una", "por", "con", "para", "yo", "pero", "como", "más", "está", "qué", "mi", "corazón", "eres", "quiero"),
	French:  set("le", "les", "et", "une", "je", "vous", "nous", "est", "pas", "dans", "avec", "pour", "mon", "ma", "qui", "c'est", "moi", "toi"),
	German:  set("der", "die", "das", "und", "ich", "du", "nicht", "ist", "ein", "eine", "mit", "mein", "dich", "mich", "auf", "wir", "sie", "liebe"),
	English: set("the", "and", "you", "i", "is", "are", "my", "me", "to", "of", "it", "that", "love", "your", "we", "not", "don't", "i'm"),
}

// stopword languages in tie-break order
var stopwordOrder = []string{English, Spanish, French, German}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var lower = cases.Lower(language.Und)

// Detect guesses the language of the given texts (lyrics, title, artist).
// Script ranges decide first: kana means Japanese even among Han
// characters, then Hangul, Han, Cyrillic, Arabic and Devanagari. Latin
// text is scored by stopword hits; English wins ties and empty input.
func Detect(texts ...string) string {
	var kana, hangul, han, cyrillic, arabic, devanagari int
	for _, text := range texts {
		for _, r := range text {
			switch {
			case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
				kana++
			case unicode.Is(unicode.Hangul, r):
				hangul++
			case unicode.Is(unicode.Han, r):
				han++
			case unicode.Is(unicode.Cyrillic, r):
				cyrillic++
			case unicode.Is(unicode.Arabic, r):
				arabic++
			case unicode.Is(unicode.Devanagari, r):
				devanagari++
			}
		}
	}

	switch {
	case kana > 0:
		return Japanese
	case hangul > 0:
		return Korean
	case han > 0:
		return Chinese
	case cyrillic > 0:
		return Russian
	case arabic > 0:
		return Arabic
	case devanagari > 0:
		return Hindi
	}

	scores := make(map[string]int, len(stopwords))
	for _, text := range texts {
		for _, w := range words(text) {
			for lang, sw := range stopwords {
				if _, ok := sw[w]; ok {
					scores[lang]++
				}
			}
		}
	}

	best, bestScore := English, 0
	for _, l := range stopwordOrder {
		if scores[l] > bestScore {
			best, bestScore = l, scores[l]
		}
	}
	return best
}

func words(text string) []string {
	return strings.FieldsFunc(lower.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// IsCJK reports whether lang is written without word spaces.
func IsCJK(lang string) bool {
	return lang == Japanese || lang == Chinese || lang == Korean
}
