package features

import (
	"context"
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Tunables
const (
	FrameSize = 1024
	HopSize   = 512
)

var (
	ErrTooShort       = errors.New("features: input shorter than one frame")
	ErrWindowMismatch = errors.New("features: window length must equal frame size")
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	return window.Hamming(n)
}

// FFTReal wraps the go-dsp FFT function and returns a complex spectrum.
func FFTReal(frame []float64) []complex128 {
	return fft.FFTReal(frame)
}

// MagnitudeSpectrum converts a complex spectrum into a magnitude spectrum (positive freqs only)
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// FrameCount returns how many full frames fit into n samples.
func FrameCount(n, frameSize, hopSize int) int {
	if n < frameSize || hopSize <= 0 {
		return 0
	}
	return (n-frameSize)/hopSize + 1
}

// STFT slides a window over samples and calls visit with each raw frame
// and its magnitude spectrum, in time order. Both slices are reused
// between calls. ctx is checked every 256 frames.
func STFT(ctx context.Context, samples []float64, frameSize, hopSize int, win []float64, visit func(raw, mag []float64)) error {
	if len(win) != frameSize {
		return ErrWindowMismatch
	}
	if len(samples) < frameSize {
		return ErrTooShort
	}

	frame := make([]float64, frameSize)
	for n, start := 0, 0; start+frameSize <= len(samples); n, start = n+1, start+hopSize {
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		raw := samples[start : start+frameSize]
		for i, v := range raw {
			frame[i] = v * win[i]
		}
		visit(raw, MagnitudeSpectrum(FFTReal(frame)))
	}
	return nil
}
