package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Error0229/Lyryc-sub000/pkg/utils"
)

// DefaultSampleRate is low on purpose: MFCC on 26 mel bands needs nothing
// above 5.5 kHz.
const DefaultSampleRate = 11025

// ErrFFmpegMissing is returned when ffmpeg is not on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

type ConvertWAVConfig struct {
	SampleRate int           // e.g. 11025, 22050, 44100
	Timeout    time.Duration // applied when ctx has no deadline
}

// FFmpegAvailable reports whether ffmpeg can be executed.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ConvertToMonoWAV converts an audio file to mono 16-bit PCM WAV and saves
// it to outputDir under the input's base name with a .wav extension.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if !FFmpegAvailable() {
		return "", ErrFFmpegMissing
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}
