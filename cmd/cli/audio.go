package main

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/eligwz/spectrogram"
	"github.com/spf13/cobra"

	"github.com/Error0229/Lyryc-sub000/internal/audio"
	"github.com/Error0229/Lyryc-sub000/internal/dtw"
	"github.com/Error0229/Lyryc-sub000/internal/features"
	"github.com/Error0229/Lyryc-sub000/internal/lang"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/pkg/logger"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

var (
	argBand   int
	argOutput string
	argWidth  int
	argHeight int
	argLog    bool
)

func newLoader() *audio.Loader {
	return audio.NewLoader(audio.LoaderConfig{
		TempDir:    cfg.TempDir,
		SampleRate: cfg.SampleRate,
		UserAgent:  cfg.UserAgent,
	}, logger.GetLogger())
}

var refineCmd = &cobra.Command{
	Use:   "refine <file.lrc> <audio>",
	Short: "Re-time an LRC file against its audio with DTW",
	Long: `Decodes the audio (local file, http(s) URL or YouTube link), extracts
MFCC features and aligns the lyric lines with dynamic time warping. The
original timings are used as the reference for the confidence score.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		text, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		lines := lrc.Parse(text)
		if len(lines) == 0 {
			return fmt.Errorf("%s: no timed lines", args[0])
		}

		buf, err := newLoader().Load(ctx, args[1])
		if err != nil {
			if errors.Is(err, audio.ErrFFmpegMissing) {
				return fmt.Errorf("refinement needs ffmpeg on PATH: %w", err)
			}
			return err
		}
		logger.Infof("Decoded %s samples (%s) at %d Hz",
			humanize.Comma(int64(len(buf.Samples))), formatTime(buf.Duration()), buf.SampleRate)

		feats, err := features.Extract(ctx, buf.Samples, buf.SampleRate)
		if err != nil {
			return err
		}

		dcfg := dtw.DefaultConfig()
		dcfg.Band = argBand
		res, err := dtw.NewRefiner(dcfg).Refine(ctx, feats, lines, lang.Detect(text), models.ToAligned(lines))
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), res)
		}

		out := cmd.OutOrStdout()
		printLines(out, res.Lines, argWords)
		fmt.Fprintf(out, "\nconfidence %.2f  cost %.1f", res.Confidence, res.Cost)
		if m := res.Metrics; m != nil {
			fmt.Fprintf(out, "  MAE %.3fs  mean offset %+.3fs", m.MAE, m.MeanOffset)
		}
		fmt.Fprintln(out)
		return nil
	},
}

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <audio>",
	Short: "Render a spectrogram PNG of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		buf, err := newLoader().Load(ctx, args[0])
		if err != nil {
			return err
		}

		output := argOutput
		if output == "" {
			base := filepath.Base(args[0])
			output = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
		}

		img := spectrogram.NewImage128(image.Rect(0, 0, argWidth, argHeight))
		draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)
		spectrogram.Drawfft(
			img,
			buf.Samples,
			uint32(buf.SampleRate),
			uint32(argHeight),
			false, // Hamming window
			false, // FFT
			true,  // magnitude
			argLog,
		)
		if err := spectrogram.SavePng(img, output); err != nil {
			return fmt.Errorf("failed to save %s: %w", output, err)
		}

		size := "?"
		if st, err := os.Stat(output); err == nil {
			size = humanize.Bytes(uint64(st.Size()))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %s of audio)\n", output, size, formatTime(buf.Duration()))
		return nil
	},
}

// printLines writes one "[mm:ss.cc] text" row per line, optionally
// followed by the word timings.
func printLines(w io.Writer, lines []models.LyricLine, words bool) {
	for _, l := range lines {
		fmt.Fprintf(w, "[%s] %s\n", formatTime(l.Time), l.Text)
		if !words {
			continue
		}
		for _, wt := range l.Words {
			fmt.Fprintf(w, "           %s-%s %s\n", formatTime(wt.Start), formatTime(wt.End), wt.Word)
		}
	}
}

func init() {
	refineCmd.Flags().IntVar(&argBand, "band", 0, "Limit DTW to a diagonal band of this many frames (0 = full matrix)")
	refineCmd.Flags().BoolVarP(&argWords, "words", "w", false, "Print word timings")

	spectrogramCmd.Flags().StringVarP(&argOutput, "output", "o", "", "Output PNG path (default <name>.png)")
	spectrogramCmd.Flags().IntVar(&argWidth, "width", 2048, "Image width in pixels")
	spectrogramCmd.Flags().IntVar(&argHeight, "height", 512, "Image height in pixels (frequency bins)")
	spectrogramCmd.Flags().BoolVar(&argLog, "log", false, "Log10 magnitude scale")
}
