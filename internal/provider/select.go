package provider

import (
	"math"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Error0229/Lyryc-sub000/internal/trackname"
)

// durationTolerance is how far (seconds) a hit's duration may be from the
// query's before it ranks lower.
const durationTolerance = 2.0

type hitSource []Record

func (h hitSource) String(i int) string { return h[i].TrackName }
func (h hitSource) Len() int            { return len(h) }

// Best picks the hit to use: synced lyrics beat plain lyrics, and within
// a tier hits are ranked by fuzzy title match then duration closeness.
// When no hit has lyrics an instrumental hit is returned so the caller can
// show an empty result; otherwise nil.
func Best(hits []Record, q Query) *Record {
	var synced, plain []Record
	var instrumental *Record
	for i := range hits {
		h := hits[i]
		switch {
		case strings.TrimSpace(h.SyncedLyrics) != "":
			synced = append(synced, h)
		case strings.TrimSpace(h.PlainLyrics) != "":
			plain = append(plain, h)
		case h.Instrumental && instrumental == nil:
			instrumental = &hits[i]
		}
	}

	for _, tier := range [][]Record{synced, plain} {
		if len(tier) > 0 {
			r := rank(tier, q)[0]
			return &r
		}
	}
	return instrumental
}

type scored struct {
	rec     Record
	idx     int
	matched bool
	score   int
	drift   float64
}

func rank(hits []Record, q Query) []Record {
	items := make([]scored, len(hits))
	for i, h := range hits {
		items[i] = scored{rec: h, idx: i, drift: durationDrift(h.Duration, q.DurationSec)}
	}

	pattern := strings.ToLower(trackname.Clean(q.Title))
	if pattern != "" {
		for _, m := range fuzzy.FindFrom(pattern, hitSource(hits)) {
			items[m.Index].matched = true
			items[m.Index].score = m.Score
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.matched != b.matched {
			return a.matched
		}
		if a.drift != b.drift {
			return a.drift < b.drift
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.idx < b.idx
	})

	out := make([]Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

// durationDrift is 0 when either duration is unknown or the two are within
// tolerance, else the whole seconds of difference.
func durationDrift(hit, want float64) float64 {
	if hit <= 0 || want <= 0 {
		return 0
	}
	d := math.Abs(hit - want)
	if d <= durationTolerance {
		return 0
	}
	return math.Ceil(d)
}
