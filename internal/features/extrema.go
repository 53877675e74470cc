package features

import "sort"

// ExtremumKind selects peaks or troughs of a curve.
type ExtremumKind int

const (
	Peak ExtremumKind = iota
	Trough
)

// Extremum is a local maximum or minimum of a per-frame curve.
type Extremum struct {
	FrameIdx int
	Time     float64
	Value    float64
	Kind     ExtremumKind
}

// LocalExtrema finds frames that are strict local maxima (or minima) of
// curve within +/- neighbour frames. Plateaus report their first frame.
// Results are sorted by frame index.
func LocalExtrema(curve []float64, frameRate float64, neighbour int, kind ExtremumKind) []Extremum {
	if len(curve) == 0 || frameRate <= 0 {
		return nil
	}
	if neighbour < 1 {
		neighbour = 1
	}

	better := func(a, b float64) bool { return a > b }
	if kind == Trough {
		better = func(a, b float64) bool { return a < b }
	}

	out := make([]Extremum, 0, len(curve)/8)
	for i, v := range curve {
		ok := true
		for d := -neighbour; d <= neighbour && ok; d++ {
			j := i + d
			if d == 0 || j < 0 || j >= len(curve) {
				continue
			}
			// earlier equal neighbours win the plateau
			if better(curve[j], v) || (j < i && curve[j] == v) {
				ok = false
			}
		}
		if ok {
			out = append(out, Extremum{FrameIdx: i, Time: float64(i) / frameRate, Value: v, Kind: kind})
		}
	}

	sort.Slice(out, func(a, b int) bool { return out[a].FrameIdx < out[b].FrameIdx })
	return out
}

// NearestExtremum returns the extremum of the requested kind closest to t
// within +/- window seconds, searching curve directly. ok is false when the
// window holds no such extremum.
func NearestExtremum(curve []float64, frameRate, t, window float64, kind ExtremumKind) (Extremum, bool) {
	if len(curve) == 0 || frameRate <= 0 || window <= 0 {
		return Extremum{}, false
	}

	lo := int((t - window) * frameRate)
	hi := int((t+window)*frameRate) + 1
	lo = max(lo, 0)
	hi = min(hi, len(curve)-1)
	if lo > hi {
		return Extremum{}, false
	}

	var best Extremum
	found := false
	bestDist := 0.0
	for _, e := range LocalExtrema(curve[lo:hi+1], frameRate, 2, kind) {
		// interior points only; slice edges are not real extrema
		if (e.FrameIdx == 0 && lo > 0) || (e.FrameIdx == hi-lo && hi < len(curve)-1) {
			continue
		}
		e.FrameIdx += lo
		e.Time = float64(e.FrameIdx) / frameRate
		dist := e.Time - t
		if dist < 0 {
			dist = -dist
		}
		if dist > window {
			continue
		}
		if !found || dist < bestDist {
			best, bestDist, found = e, dist, true
		}
	}
	return best, found
}
