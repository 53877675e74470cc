package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrInvalidWAV       = errors.New("not a valid WAV file")
	ErrUnsupportedDepth = errors.New("unsupported bits per sample")
)

// Buffer is decoded mono audio normalised to [-1, 1].
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// sampleScale returns the factor that maps integer PCM of the given depth
// into [-1, 1].
func sampleScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 1.0 / 128.0, nil
	case 16:
		return 1.0 / 32768.0, nil
	case 24:
		return 1.0 / 8388608.0, nil
	case 32:
		return 1.0 / 2147483648.0, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, bitDepth)
	}
}

// convertMonoToFloat64 converts mono integer samples to float64
func convertMonoToFloat64(samples []int, scale float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}

// downmix averages interleaved channels into mono float64.
func downmix(samples []int, channels int, scale float64) []float64 {
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[i*channels+c])
		}
		out[i] = sum / float64(channels) * scale
	}
	return out
}

// convertToMonoFloat64 converts an IntBuffer to mono float64 samples
// normalised to [-1, 1].
func convertToMonoFloat64(buf *goaudio.IntBuffer, bitDepth int) ([]float64, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("empty PCM buffer")
	}
	scale, err := sampleScale(bitDepth)
	if err != nil {
		return nil, err
	}
	data := buf.Data
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		data = make([]int, len(buf.Data))
		for i, s := range buf.Data {
			data[i] = s - 128
		}
	}

	switch ch := buf.Format.NumChannels; {
	case ch == 1:
		return convertMonoToFloat64(data, scale), nil
	case ch > 1:
		return downmix(data, ch, scale), nil
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", ch)
	}
}

// DecodeWAV decodes an integer PCM WAV stream into a mono Buffer.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if decoder.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV audio format %d: only PCM (1) supported", decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}

	samples, err := convertToMonoFloat64(buf, int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}
	return &Buffer{Samples: samples, SampleRate: int(decoder.SampleRate)}, nil
}

// ReadWavAsFloat64 reads a PCM WAV file and returns mono, normalized
// samples in the range [-1,1] and the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return buf.Samples, buf.SampleRate, nil
}

// WriteMonoWAV writes samples in [-1, 1] as 16-bit mono PCM.
func WriteMonoWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	return enc.Close()
}
