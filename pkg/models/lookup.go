package models

// CurrentLineIndex returns the index of the line being sung at t, or -1 when
// t is before the first line. The last line starting at or before t wins;
// among lines sharing that start time the earliest one is returned.
func CurrentLineIndex(lines []LyricLine, t float64) int {
	idx := -1
	for i, l := range lines {
		if l.Time > t {
			break
		}
		if idx >= 0 && lines[idx].Time == l.Time {
			continue
		}
		idx = i
	}
	return idx
}

// CurrentWordIndex returns the index of the word being sung at t within a
// line, or -1.
func CurrentWordIndex(words []WordTiming, t float64) int {
	idx := -1
	for i, w := range words {
		if w.Start > t {
			break
		}
		idx = i
	}
	return idx
}

// WordProgress returns how far t is through w, in [0, 1]. A zero-length
// word is complete the instant t reaches it.
func WordProgress(w WordTiming, t float64) float64 {
	if t < w.Start {
		return 0
	}
	span := w.End - w.Start
	if w.IsOpen() || span <= 0 {
		return 1
	}
	p := (t - w.Start) / span
	if p > 1 {
		return 1
	}
	return p
}
