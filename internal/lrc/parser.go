// Package lrc parses the community LRC dialect served by lyrics databases
// into timed lyric lines.
//
// Timestamps are [mm:ss], [mm:ss.cc] or [mm:ss.ccc]. A two digit fraction is
// centiseconds and a three digit fraction is milliseconds. Word tags
// (<mm:ss.cc>word) inside a line produce word timings.
package lrc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// ErrMalformedLine is returned by ParseLine for a line that does not start
// with a timestamp or has no text after it.
var ErrMalformedLine = errors.New("lrc: malformed line")

var (
	lineTagRe  = regexp.MustCompile(`^\[(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	wordTagRe  = regexp.MustCompile(`<(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?>`)
	offsetRe   = regexp.MustCompile(`^\[offset:\s*([+-]?\d+)\s*\]$`)
	metaRe     = regexp.MustCompile(`^\[[a-zA-Z#]+:.*\]$`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

// Stats describes what a parse pass saw.
type Stats struct {
	Lines    int // non-blank payload lines
	Parsed   int // lyric lines produced
	Metadata int // [ar:], [ti:], [offset:] ...
	Skipped  int // malformed lines
}

// Parse parses an LRC payload. It never fails: malformed lines are skipped
// and a payload without any timestamp yields an empty slice.
func Parse(payload string) []models.LyricLine {
	lines, _ := ParseWithStats(payload)
	return lines
}

// ParseReader parses an LRC payload from r.
func ParseReader(r io.Reader) ([]models.LyricLine, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lrc payload: %w", err)
	}
	return Parse(sb.String()), nil
}

// ParseWithStats parses an LRC payload and reports how many lines were used.
func ParseWithStats(payload string) ([]models.LyricLine, Stats) {
	var stats Stats
	payload = strings.TrimPrefix(payload, "\ufeff")

	offset := 0.0
	out := make([]models.LyricLine, 0)
	for _, raw := range strings.Split(payload, "\n") {
		raw = strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if raw == "" {
			continue
		}
		stats.Lines++

		if m := offsetRe.FindStringSubmatch(raw); m != nil {
			ms, _ := strconv.Atoi(m[1])
			offset = float64(ms) / 1000
			stats.Metadata++
			continue
		}

		parsed, err := ParseLine(raw)
		if err != nil {
			if metaRe.MatchString(raw) {
				stats.Metadata++
			} else {
				stats.Skipped++
			}
			continue
		}
		out = append(out, parsed...)
	}

	if offset != 0 {
		applyOffset(out, offset)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	for i := range out {
		if i+1 < len(out) {
			out[i].Duration = out[i+1].Time - out[i].Time
		} else {
			out[i].Duration = models.DefaultLastLineDuration
		}
	}
	stats.Parsed = len(out)
	return out, stats
}

// ParseLine parses one payload line. A line with several leading timestamps
// ([00:10.00][00:42.00]text) yields one lyric line per timestamp. Durations
// are left at zero; they depend on the following line.
func ParseLine(raw string) ([]models.LyricLine, error) {
	rest := strings.TrimSpace(raw)

	var times []float64
	for {
		m := lineTagRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		t, err := ParseTimestamp(m[1], m[2], m[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		times = append(times, t)
		rest = strings.TrimSpace(rest[len(m[0]):])
	}
	if len(times) == 0 {
		return nil, ErrMalformedLine
	}

	text := cleanText(wordTagRe.ReplaceAllString(rest, ""))
	if text == "" {
		return nil, ErrMalformedLine
	}

	words, err := parseWords(rest, times[0])
	if err != nil {
		return nil, err
	}

	out := make([]models.LyricLine, 0, len(times))
	for _, t := range times {
		line := models.LyricLine{Time: t, Text: text}
		if len(words) > 0 {
			line.Words = shiftWords(words, t-times[0])
		}
		out = append(out, line)
	}
	return out, nil
}

// ParseTimestamp converts the minute, second and fraction fields of a tag into
// seconds. The fraction width selects its unit: 1 digit tenths, 2 digits
// centiseconds, 3 digits milliseconds.
func ParseTimestamp(minutes, seconds, frac string) (float64, error) {
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, fmt.Errorf("minutes %q: %w", minutes, err)
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, fmt.Errorf("seconds %q: %w", seconds, err)
	}
	t := float64(m*60 + s)
	if frac == "" {
		return t, nil
	}
	f, err := strconv.Atoi(frac)
	if err != nil {
		return 0, fmt.Errorf("fraction %q: %w", frac, err)
	}
	switch len(frac) {
	case 1:
		t += float64(f) / 10
	case 2:
		t += float64(f) / 100
	default:
		t += float64(f) / 1000
	}
	return t, nil
}

// parseWords extracts word timings from the tagged text of a line. Each word
// ends where the next one starts; the last word stays open unless a trailing
// tag without text closes it.
func parseWords(rest string, lineTime float64) ([]models.WordTiming, error) {
	locs := wordTagRe.FindAllStringSubmatchIndex(rest, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	words := make([]models.WordTiming, 0, len(locs)+1)
	if prefix := cleanText(rest[:locs[0][0]]); prefix != "" {
		words = append(words, models.WordTiming{Start: lineTime, End: models.OpenEnd, Word: prefix})
	}

	for i, loc := range locs {
		start, err := ParseTimestamp(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]], submatch(rest, loc, 6))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		if n := len(words); n > 0 && words[n-1].IsOpen() {
			words[n-1].End = start
		}

		end := len(rest)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		word := cleanText(rest[loc[1]:end])
		if word == "" {
			continue
		}
		words = append(words, models.WordTiming{Start: start, End: models.OpenEnd, Word: word})
	}
	return words, nil
}

func submatch(s string, loc []int, i int) string {
	if loc[i] < 0 {
		return ""
	}
	return s[loc[i]:loc[i+1]]
}

func shiftWords(words []models.WordTiming, delta float64) []models.WordTiming {
	out := make([]models.WordTiming, len(words))
	for i, w := range words {
		out[i] = models.WordTiming{Start: w.Start + delta, End: w.End, Word: w.Word}
		if !w.IsOpen() {
			out[i].End = w.End + delta
		}
	}
	return out
}

// applyOffset applies an [offset:ms] tag. A positive offset makes lyrics
// appear earlier.
func applyOffset(lines []models.LyricLine, offset float64) {
	shift := func(t float64) float64 {
		t -= offset
		if t < 0 {
			return 0
		}
		return t
	}
	for i := range lines {
		lines[i].Time = shift(lines[i].Time)
		for j := range lines[i].Words {
			w := &lines[i].Words[j]
			w.Start = shift(w.Start)
			if !w.IsOpen() {
				w.End = shift(w.End)
			}
		}
	}
}

func cleanText(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}
