// Package features turns decoded mono audio into per-frame descriptors used
// by the DTW aligner: energy, mel spectrum, MFCC, spectral centroid and
// zero-crossing rate.
package features

import (
	"context"
	"fmt"
	"math"
)

// Frame holds the descriptors of one analysis frame.
type Frame struct {
	Energy   float64   // mean square of the raw samples
	MFCC     []float64 // MFCCSize coefficients
	Mel      []float64 // MelBands energies
	Centroid float64   // Hz
	ZCR      float64   // sign changes per sample
}

// Features is the frame sequence of one track.
type Features struct {
	Frames     []Frame
	SampleRate int
	FrameRate  float64 // frames per second, sampleRate / HopSize
}

// Duration returns the audio time covered by the frames in seconds.
func (f *Features) Duration() float64 {
	if f == nil || f.FrameRate == 0 {
		return 0
	}
	return float64(len(f.Frames)) / f.FrameRate
}

// FrameTime converts a frame index into seconds.
func (f *Features) FrameTime(i int) float64 {
	if f.FrameRate == 0 {
		return 0
	}
	return float64(i) / f.FrameRate
}

// Energy returns the per-frame energy curve.
func (f *Features) Energy() []float64 {
	out := make([]float64, len(f.Frames))
	for i, fr := range f.Frames {
		out[i] = fr.Energy
	}
	return out
}

// MFCCMatrix returns the MFCC vectors frame by frame.
func (f *Features) MFCCMatrix() [][]float64 {
	out := make([][]float64, len(f.Frames))
	for i, fr := range f.Frames {
		out[i] = fr.MFCC
	}
	return out
}

// Extract frames samples with FrameSize/HopSize and computes every
// descriptor.
func Extract(ctx context.Context, samples []float64, sampleRate int) (*Features, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("features: invalid sample rate %d", sampleRate)
	}
	if len(samples) < FrameSize {
		return nil, ErrTooShort
	}

	filters := MelFilterbank(MelBands, FrameSize/2, sampleRate)
	binHz := float64(sampleRate) / float64(FrameSize)

	out := &Features{
		Frames:     make([]Frame, 0, FrameCount(len(samples), FrameSize, HopSize)),
		SampleRate: sampleRate,
		FrameRate:  float64(sampleRate) / float64(HopSize),
	}
	err := STFT(ctx, samples, FrameSize, HopSize, Hamming(FrameSize), func(raw, mag []float64) {
		mel := MelEnergies(mag, filters)
		out.Frames = append(out.Frames, Frame{
			Energy:   Energy(raw),
			MFCC:     MFCC(mel),
			Mel:      mel,
			Centroid: SpectralCentroid(mag, binHz),
			ZCR:      ZeroCrossingRate(raw),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Energy is the mean square of a frame.
func Energy(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return sum / float64(len(frame))
}

// ZeroCrossingRate is the fraction of adjacent sample pairs that change sign.
func ZeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}

// SpectralCentroid is the magnitude-weighted mean frequency in Hz.
func SpectralCentroid(mag []float64, binHz float64) float64 {
	var num, den float64
	for k, m := range mag {
		num += float64(k) * binHz * m
		den += m
	}
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}
