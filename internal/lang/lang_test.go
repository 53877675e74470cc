package lang

import (
	"math"
	"testing"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{"empty", nil, English},
		{"english", []string{"I love you and you love me"}, English},
		{"spanish", []string{"Quiero estar contigo, eres mi corazón y para siempre"}, Spanish},
		{"french", []string{"Je suis avec toi dans la nuit, c'est pour moi"}, French},
		{"german", []string{"Ich liebe dich und du bist nicht allein"}, German},
		{"japanese kana with kanji", []string{"夜に駆ける"}, Japanese},
		{"chinese", []string{"我爱你中国"}, Chinese},
		{"korean", []string{"사랑해요"}, Korean},
		{"russian", []string{"Я тебя люблю"}, Russian},
		{"arabic", []string{"أحبك"}, Arabic},
		{"hindi", []string{"मैं तुमसे प्यार करता हूँ"}, Hindi},
		{"title decides", []string{"la la la", "Tum Hi Ho", "अरिजीत"}, Hindi},
		{"no stopwords", []string{"xyzzy plugh"}, English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.texts...); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.texts, got, tt.want)
			}
		})
	}
}

func TestMinWordDuration(t *testing.T) {
	if MinWordDuration(German) <= MinWordDuration(English) {
		t.Error("German words should get a longer minimum than English")
	}
	if MinWordDuration(Japanese) <= MinWordDuration(English) {
		t.Error("CJK words should get a longer minimum than English")
	}
	if MinWordDuration("xx") != defaultMinWordDuration {
		t.Errorf("unknown language should use the default")
	}
}

func TestFixSpacing(t *testing.T) {
	tests := []struct {
		in, lang, want string
	}{
		{"  hello   world ,  friend !  ", English, "hello world, friend!"},
		{"Bonjour , mon ami!", French, "Bonjour, mon ami !"},
		{"こんにちは 、 世界 。", Japanese, "こんにちは、世界。"},
		{"été", Spanish, "été"},
		{"tab\tseparated", German, "tab separated"},
	}
	for _, tt := range tests {
		if got := FixSpacing(tt.in, tt.lang); got != tt.want {
			t.Errorf("FixSpacing(%q, %s) = %q, want %q", tt.in, tt.lang, got, tt.want)
		}
	}
}

func wordsSpan(t *testing.T, words []models.WordTiming, start, end float64) {
	t.Helper()
	if words[0].Start != start {
		t.Errorf("first word starts at %v, want %v", words[0].Start, start)
	}
	if words[len(words)-1].End != end {
		t.Errorf("last word ends at %v, want %v", words[len(words)-1].End, end)
	}
	for i := 1; i < len(words); i++ {
		if math.Abs(words[i].Start-words[i-1].End) > 1e-9 {
			t.Errorf("words %d and %d not contiguous", i-1, i)
		}
	}
}

func TestApplyMinWordDurations(t *testing.T) {
	line := models.LyricLine{Time: 0, Duration: 1, Words: []models.WordTiming{
		{Start: 0, End: 0.02, Word: "a"},
		{Start: 0.02, End: 0.5, Word: "long"},
		{Start: 0.5, End: 1, Word: "word"},
	}}
	ApplyMinWordDurations(&line, 0.12)

	if d := line.Words[0].End - line.Words[0].Start; math.Abs(d-0.12) > 1e-9 {
		t.Errorf("short word span = %v, want 0.12", d)
	}
	for i, w := range line.Words {
		if w.End-w.Start < 0.12-1e-9 {
			t.Errorf("word %d shorter than minimum: %+v", i, w)
		}
	}
	wordsSpan(t, line.Words, 0, 1)
}

func TestApplyMinWordDurationsTooShortLine(t *testing.T) {
	line := models.LyricLine{Words: []models.WordTiming{
		{Start: 5, End: 5.01, Word: "a"},
		{Start: 5.01, End: 5.2, Word: "b"},
	}}
	ApplyMinWordDurations(&line, 0.15)
	if math.Abs((line.Words[0].End-line.Words[0].Start)-0.1) > 1e-9 {
		t.Errorf("words should be equal when the line is too short: %+v", line.Words)
	}
	wordsSpan(t, line.Words, 5, 5.2)
}

func TestApplyMinWordDurationsSkipsGappedWords(t *testing.T) {
	words := []models.WordTiming{
		{Start: 0, End: 0.01, Word: "a"},
		{Start: 0.5, End: 1, Word: "b"},
	}
	line := models.LyricLine{Words: append([]models.WordTiming(nil), words...)}
	ApplyMinWordDurations(&line, 0.1)
	for i := range words {
		if line.Words[i] != words[i] {
			t.Errorf("gapped words should be left alone: %+v", line.Words)
		}
	}
}

func TestPostProcess(t *testing.T) {
	lines := []models.LyricLine{{Time: 0, Text: "hello  world !", Duration: 1, Words: []models.WordTiming{
		{Start: 0, End: 0.95, Word: "hello"},
		{Start: 0.95, End: 1, Word: "world"},
	}}}
	PostProcess(lines, English)
	if lines[0].Text != "hello world!" {
		t.Errorf("text = %q", lines[0].Text)
	}
	if d := lines[0].Words[1].End - lines[0].Words[1].Start; d < 0.08-1e-9 {
		t.Errorf("last word span = %v, want >= 0.08", d)
	}
}
