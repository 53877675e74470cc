package dtw

import (
	"strings"
	"unicode"
)

// Class is a coarse articulation class. It is a timing hint, not phonetics.
type Class int

const (
	Other Class = iota
	Vowel
	Plosive
	Fricative
	Nasal
	Liquid // liquids and glides
)

// Phoneme is the table entry for one character.
type Phoneme struct {
	Class Class
	Code  int
}

// Table maps characters of one language to phoneme-like entries.
type Table map[rune]Phoneme

// Supported language codes.
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

var tables = map[string]Table{}

func init() {
	latin := latinTable()
	tables[English] = latin
	tables[Spanish] = extend(latin, map[Class]string{
		Vowel:     "áéíóúü",
		Nasal:     "ñ",
		Fricative: "jz",
		Liquid:    "ry",
	})
	tables[French] = extend(latin, map[Class]string{
		Vowel:     "àâæéèêëîïôœùûüÿ",
		Fricative: "çjh",
		Liquid:    "r",
	})
	tables[German] = extend(latin, map[Class]string{
		Vowel:     "äöü",
		Fricative: "ßwvz",
		Liquid:    "jr",
	})
	tables[Japanese] = kanaTable()
	tables[Korean] = Table{} // Hangul is decomposed in Lookup
	tables[Chinese] = build(map[Class]string{
		Vowel:     "爱一啊哦饿二安恩耳阿",
		Plosive:   "的不他她它个天到对大点给看过开可快跟得多",
		Fricative: "是这在时说想心就上生子自些下谁所事",
		Nasal:     "你们没那能么梦明美难年",
		Liquid:    "我了来人有要会又为让里雨月无问",
	})
	tables[Russian] = build(map[Class]string{
		Vowel:     "аеёиоуыэюя",
		Plosive:   "бпдтгк",
		Fricative: "вфзсжшщхцч",
		Nasal:     "мн",
		Liquid:    "лрй",
	})
	tables[Arabic] = build(map[Class]string{
		Vowel:     "اآأإىةيو",
		Plosive:   "بتدطكقضء",
		Fricative: "ثذسشصظفخغحهعز",
		Nasal:     "من",
		Liquid:    "لر",
	})
	tables[Hindi] = build(map[Class]string{
		Vowel:     "अआइईउऊऋएऐओऔािीुूृेैोौ",
		Plosive:   "कखगघचछजझटठडढतथदधपफबभ",
		Fricative: "शषसह",
		Nasal:     "ङञणनमंँ",
		Liquid:    "यरलव",
	})
}

func latinTable() Table {
	return build(map[Class]string{
		Vowel:     "aeiou",
		Plosive:   "bcdgkpqt",
		Fricative: "fhjsvxz",
		Nasal:     "mn",
		Liquid:    "lrwy",
	})
}

func build(classes map[Class]string) Table {
	t := Table{}
	for class, chars := range classes {
		for _, r := range chars {
			t[r] = Phoneme{Class: class, Code: int(class)*100 + int(r)%100}
		}
	}
	return t
}

func extend(base Table, classes map[Class]string) Table {
	t := make(Table, len(base))
	for r, p := range base {
		t[r] = p
	}
	for r, p := range build(classes) {
		t[r] = p
	}
	return t
}

// kana rows by consonant; each row lists hiragana, katakana is derived.
func kanaTable() Table {
	rows := map[Class]string{
		Vowel:     "あいうえおぁぃぅぇぉー",
		Plosive:   "かきくけこがぎぐげごたちつてとだぢづでどぱぴぷぺぽばびぶべぼっ",
		Fricative: "さしすせそざじずぜぞはひふへほ",
		Nasal:     "なにぬねのまみむめもん",
		Liquid:    "らりるれろやゆよゃゅょわをゐゑ",
	}
	t := build(rows)
	for r, p := range t {
		if r >= 'ぁ' && r <= 'ゖ' {
			t[r+0x60] = p
		}
	}
	t['ヴ'] = Phoneme{Class: Fricative, Code: int(Fricative)*100 + int('ヴ')%100}
	return t
}

// Hangul initial consonants in syllable order.
var hangulInitials = []Class{
	Plosive, Plosive, Nasal, Plosive, Plosive, Liquid, Nasal, Plosive, Plosive,
	Fricative, Fricative, Vowel, Fricative, Fricative, Fricative, Plosive, Plosive, Plosive, Fricative,
}

// Lookup returns the phoneme entry of r in lang. Characters missing from the
// table fall back to their raw code point with class Other, except letters
// of scripts handled structurally (Hangul syllables).
func Lookup(lang string, r rune) Phoneme {
	r = unicode.ToLower(r)
	if r >= 0xAC00 && r <= 0xD7A3 {
		idx := int(r-0xAC00) / 588
		return Phoneme{Class: hangulInitials[idx], Code: int(hangulInitials[idx])*100 + idx}
	}
	if t, ok := tables[lang]; ok {
		if p, ok := t[r]; ok {
			return p
		}
	}
	if t, ok := tables[English]; ok && lang != English {
		if p, ok := t[r]; ok {
			return p
		}
	}
	return Phoneme{Class: Other, Code: int(r)}
}

// Languages lists the languages with a table.
func Languages() []string {
	return []string{English, Spanish, French, German, Japanese, Korean, Chinese, Russian, Arabic, Hindi}
}

// Supported reports whether lang has a table.
func Supported(lang string) bool {
	_, ok := tables[strings.ToLower(lang)]
	return ok
}
