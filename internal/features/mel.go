package features

import "math"

// Tunables
const (
	MelBands = 26
	MFCCSize = 13

	logFloor = 1e-10
)

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// MelFilterbank builds nBands triangular filters over the bins of a
// magnitude spectrum with nBins bins (FFT size 2*nBins). filters[b][k] is
// the weight of bin k in band b.
func MelFilterbank(nBands, nBins, sampleRate int) [][]float64 {
	filters := make([][]float64, nBands)
	if nBands <= 0 || nBins <= 0 || sampleRate <= 0 {
		return filters
	}

	nyquist := float64(sampleRate) / 2
	maxMel := hzToMel(nyquist)
	binHz := nyquist / float64(nBins)

	// nBands+2 edge points evenly spaced in mel
	edges := make([]float64, nBands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(nBands+1))
	}

	for b := 0; b < nBands; b++ {
		lo, mid, hi := edges[b], edges[b+1], edges[b+2]
		filters[b] = make([]float64, nBins)
		for k := 0; k < nBins; k++ {
			f := float64(k) * binHz
			switch {
			case f > lo && f <= mid && mid > lo:
				filters[b][k] = (f - lo) / (mid - lo)
			case f > mid && f < hi && hi > mid:
				filters[b][k] = (hi - f) / (hi - mid)
			}
		}
	}
	return filters
}

// MelEnergies applies filters to a magnitude spectrum using power (|X|^2).
func MelEnergies(mag []float64, filters [][]float64) []float64 {
	out := make([]float64, len(filters))
	for b, filter := range filters {
		var sum float64
		for k, w := range filter {
			if w == 0 || k >= len(mag) {
				continue
			}
			sum += w * mag[k] * mag[k]
		}
		out[b] = sum
	}
	return out
}

// DCT returns the first n coefficients of the type II DCT of x.
func DCT(x []float64, n int) []float64 {
	out := make([]float64, n)
	N := float64(len(x))
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/N)
		}
		out[k] = sum
	}
	return out
}

// MFCC computes MFCCSize cepstral coefficients from mel band energies.
func MFCC(melEnergies []float64) []float64 {
	logMel := make([]float64, len(melEnergies))
	for i, e := range melEnergies {
		logMel[i] = math.Log(math.Max(e, logFloor))
	}
	return DCT(logMel, MFCCSize)
}
