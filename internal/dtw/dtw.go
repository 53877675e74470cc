// Package dtw refines line and word timings against decoded audio with
// dynamic time warping between MFCC frames and per-line text features.
package dtw

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNoPath is returned when the band leaves no way from start to end.
var ErrNoPath = errors.New("dtw: no warping path")

// Move is the predecessor chosen while backtracking.
type Move int

const (
	Diagonal  Move = iota // previous frame, previous line
	Insertion             // previous frame, same line
	Deletion              // same frame, previous line
)

// Step is one cell of the warping path: audio frame Frame matched to line
// Line, both zero-based.
type Step struct {
	Frame int
	Line  int
}

// Options tunes the matrix fill.
type Options struct {
	// Band limits |i - expected(j)| in frames, where expected follows the
	// straight diagonal. Zero means the full matrix.
	Band int
}

// Distance is the Euclidean distance over the shared prefix of a and b.
func Distance(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for k := 0; k < n; k++ {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Path aligns audio frames to text lines. It fills the
// (len(audio)+1) x (len(text)+1) accumulated cost matrix with edges at
// +Inf and dtw[0][0] = 0, then backtracks from the far corner. On equal
// predecessor cost the diagonal wins, then insertion, then deletion.
// Returns the path in forward order and the total cost.
func Path(ctx context.Context, audio, text [][]float64, opts Options) ([]Step, float64, error) {
	n, m := len(audio), len(text)
	if n == 0 || m == 0 {
		return nil, 0, fmt.Errorf("%w: empty sequence (%d frames, %d lines)", ErrNoPath, n, m)
	}

	inf := math.Inf(1)
	acc := make([][]float64, n+1)
	for i := range acc {
		acc[i] = make([]float64, m+1)
		for j := range acc[i] {
			acc[i][j] = inf
		}
	}
	acc[0][0] = 0

	for i := 1; i <= n; i++ {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		lo, hi := 1, m
		if opts.Band > 0 {
			lo, hi = bandLines(i, n, m, opts.Band)
		}
		for j := lo; j <= hi; j++ {
			best := acc[i-1][j-1]
			if acc[i-1][j] < best {
				best = acc[i-1][j]
			}
			if acc[i][j-1] < best {
				best = acc[i][j-1]
			}
			if math.IsInf(best, 1) {
				continue
			}
			acc[i][j] = Distance(audio[i-1], text[j-1]) + best
		}
	}

	total := acc[n][m]
	if math.IsInf(total, 1) {
		return nil, 0, ErrNoPath
	}

	path := make([]Step, 0, n+m)
	i, j := n, m
	for i > 0 && j > 0 {
		path = append(path, Step{Frame: i - 1, Line: j - 1})
		switch predecessor(acc, i, j) {
		case Diagonal:
			i, j = i-1, j-1
		case Insertion:
			i--
		case Deletion:
			j--
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, total, nil
}

func predecessor(acc [][]float64, i, j int) Move {
	move, best := Diagonal, acc[i-1][j-1]
	if acc[i-1][j] < best {
		move, best = Insertion, acc[i-1][j]
	}
	if acc[i][j-1] < best {
		move = Deletion
	}
	return move
}

// bandLines returns the line range [lo, hi] allowed for frame i (1-based).
func bandLines(i, n, m, band int) (int, int) {
	// band is in frames; convert to lines around the diagonal
	center := float64(i) * float64(m) / float64(n)
	width := float64(band) * float64(m) / float64(n)
	lo := int(math.Floor(center - width))
	hi := int(math.Ceil(center + width))
	if lo < 1 {
		lo = 1
	}
	if hi > m {
		hi = m
	}
	return lo, hi
}

// LineStarts returns, for every line, the first audio frame the path
// matches it to.
func LineStarts(path []Step, lines int) []int {
	starts := make([]int, lines)
	for k := range starts {
		starts[k] = -1
	}
	for _, s := range path {
		if s.Line < lines && starts[s.Line] < 0 {
			starts[s.Line] = s.Frame
		}
	}
	return starts
}
