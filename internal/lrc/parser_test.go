package lrc

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestParseBasic(t *testing.T) {
	lines := Parse("[00:10.50]Hello\n[00:13.00]World")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !almostEqual(lines[0].Time, 10.5) || !almostEqual(lines[1].Time, 13.0) {
		t.Errorf("unexpected times: %v, %v", lines[0].Time, lines[1].Time)
	}
	if !almostEqual(lines[0].Duration, 2.5) {
		t.Errorf("first line duration = %v, want 2.5", lines[0].Duration)
	}
	if !almostEqual(lines[1].Duration, 3.0) {
		t.Errorf("last line duration = %v, want 3.0", lines[1].Duration)
	}
	if lines[0].Text != "Hello" || lines[1].Text != "World" {
		t.Errorf("unexpected texts: %q, %q", lines[0].Text, lines[1].Text)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "no timestamps here", "[ar:Someone]\n[ti:Something]"} {
		lines := Parse(in)
		if lines == nil {
			t.Errorf("Parse(%q) returned nil, want empty slice", in)
		}
		if len(lines) != 0 {
			t.Errorf("Parse(%q) returned %d lines, want 0", in, len(lines))
		}
	}
}

func TestParseTimestampFractions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"no fraction", "[01:02]x", 62},
		{"tenths", "[00:01.5]x", 1.5},
		{"centiseconds", "[00:01.05]x", 1.05},
		{"milliseconds", "[00:01.005]x", 1.005},
		{"milliseconds three digits", "[00:01.500]x", 1.5},
		{"colon separator", "[00:01:25]x", 1.25},
		{"long minutes", "[100:00.00]x", 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Parse(tt.input)
			if len(lines) != 1 {
				t.Fatalf("expected 1 line, got %d", len(lines))
			}
			if !almostEqual(lines[0].Time, tt.want) {
				t.Errorf("time = %v, want %v", lines[0].Time, tt.want)
			}
		})
	}
}

func TestParseSortsAndDerivesDurations(t *testing.T) {
	payload := strings.Join([]string{
		"[00:20.00]third",
		"[00:05.00]first",
		"[00:12.00]second",
	}, "\n")
	lines := Parse(payload)

	want := []struct {
		text     string
		time     float64
		duration float64
	}{
		{"first", 5, 7},
		{"second", 12, 8},
		{"third", 20, 3},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, w := range want {
		if lines[i].Text != w.text || !almostEqual(lines[i].Time, w.time) || !almostEqual(lines[i].Duration, w.duration) {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	payload := "[ar:Artist]\n[00:01.00]\nnot a lyric\n[00:02.00]ok\n[xx:yy]bad"
	lines, stats := ParseWithStats(payload)

	if len(lines) != 1 || lines[0].Text != "ok" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	if stats.Metadata != 1 {
		t.Errorf("Metadata = %d, want 1", stats.Metadata)
	}
	if stats.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", stats.Skipped)
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, in := range []string{"plain text", "[00:01.00]   ", "[00:01.00]<00:01.50>"} {
		if _, err := ParseLine(in); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseLine(%q) error = %v, want ErrMalformedLine", in, err)
		}
	}
}

func TestParseWordTags(t *testing.T) {
	lines := Parse("[00:10.00]<00:10.00>Never <00:10.50>gonna <00:11.20>give\n[00:14.00]next")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	first := lines[0]
	if first.Text != "Never gonna give" {
		t.Errorf("text = %q, want tags stripped", first.Text)
	}
	if len(first.Words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(first.Words))
	}
	if !almostEqual(first.Words[0].Start, 10) || !almostEqual(first.Words[0].End, 10.5) {
		t.Errorf("word 0 = %+v", first.Words[0])
	}
	if !almostEqual(first.Words[1].End, first.Words[2].Start) {
		t.Errorf("word end should equal next start: %+v %+v", first.Words[1], first.Words[2])
	}
	if !first.Words[2].IsOpen() {
		t.Errorf("last word should be left open, got %+v", first.Words[2])
	}
	if lines[1].Words != nil {
		t.Errorf("untagged line should have no words")
	}
}

func TestParseWordTagsTrailingTagClosesLastWord(t *testing.T) {
	lines := Parse("[00:01.00]<00:01.00>one <00:01.40>two <00:02.00>")
	if len(lines) != 1 || len(lines[0].Words) != 2 {
		t.Fatalf("unexpected parse: %+v", lines)
	}
	if !almostEqual(lines[0].Words[1].End, 2.0) {
		t.Errorf("last word end = %v, want 2.0", lines[0].Words[1].End)
	}
}

func TestParseMultipleTimestamps(t *testing.T) {
	lines := Parse("[00:10.00][00:40.00]chorus\n[00:20.00]verse")

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	got := []string{lines[0].Text, lines[1].Text, lines[2].Text}
	want := []string{"chorus", "verse", "chorus"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d text = %q, want %q", i, got[i], want[i])
		}
	}
	if !almostEqual(lines[2].Time, 40) {
		t.Errorf("repeated line time = %v, want 40", lines[2].Time)
	}
}

func TestParseOffsetTag(t *testing.T) {
	lines := Parse("[offset:+500]\n[00:10.00]a\n[00:00.20]b")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !almostEqual(lines[0].Time, 0) {
		t.Errorf("offset should clamp at zero, got %v", lines[0].Time)
	}
	if !almostEqual(lines[1].Time, 9.5) {
		t.Errorf("time = %v, want 9.5", lines[1].Time)
	}
}

func TestParseReaderCRLF(t *testing.T) {
	lines, err := ParseReader(strings.NewReader("[00:01.00]one\r\n[00:02.00]two\r\n"))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	if len(lines) != 2 || lines[1].Text != "two" {
		t.Errorf("unexpected lines: %+v", lines)
	}
}
