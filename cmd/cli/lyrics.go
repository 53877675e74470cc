package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/lang"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/internal/provider"
	"github.com/Error0229/Lyryc-sub000/internal/trackname"
	"github.com/Error0229/Lyryc-sub000/pkg/lyryc"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

var (
	argArtist   string
	argAlbum    string
	argDuration float64
	argAudio    string
	argWords    bool
	argMinLine  float64
	argMaxLine  float64
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <title>",
	Short: "Fetch and time the lyrics of a track",
	Long: `Looks the track up in the cache, the local lyrics directory and lrclib,
then parses synced lyrics or spreads plain lyrics over the track duration.
With --ai and --audio the timings are refined against the audio.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		svc, err := createService(ctx)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		res, err := svc.ProcessTrackLyrics(ctx, lyryc.Request{
			Title:       strings.Join(args, " "),
			Artist:      argArtist,
			Album:       argAlbum,
			DurationSec: argDuration,
			AudioURL:    argAudio,
		})
		if err != nil {
			if msg := lyryc.UserMessage(err); msg != "" {
				return fmt.Errorf("%s (%w)", msg, err)
			}
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), res)
		}

		out := cmd.OutOrStdout()
		if res.Outcome() == lyryc.OutcomeEmpty {
			fmt.Fprintln(out, lyryc.UserMessage(lyryc.ErrNoDataFound))
			return nil
		}
		fmt.Fprintf(out, "%s lines via %s (%s, confidence %.2f, language %s) in %s\n\n",
			humanize.Comma(int64(len(res.Lyrics))), res.Source, res.Method, res.Confidence,
			res.Language, res.ProcessingTime.Round(time.Millisecond))
		printLines(out, res.Lyrics, argWords)
		return nil
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <title>",
	Short: "Print the raw lrclib record for a track",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		svc, err := createService(ctx)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		defer svc.Close()

		rec, err := svc.FetchRaw(ctx, strings.Join(args, " "), argArtist)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [file.lrc]",
	Short: "Parse an LRC file (stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		lines, stats := lrc.ParseWithStats(text)
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), lines)
		}
		out := cmd.OutOrStdout()
		printLines(out, lines, argWords)
		fmt.Fprintf(out, "\n%d parsed, %d metadata, %d skipped of %d lines\n",
			stats.Parsed, stats.Metadata, stats.Skipped, stats.Lines)
		return nil
	},
}

var alignCmd = &cobra.Command{
	Use:   "align [file.txt]",
	Short: "Estimate line timings for plain lyrics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		total := argDuration
		if total <= 0 {
			total = lyryc.PlainLineSeconds * float64(len(align.SplitLines(text)))
		}
		aligned, err := align.AlignPlainText(text, align.Options{
			TotalDurationSec:   total,
			MinLineDurationSec: argMinLine,
			MaxLineDurationSec: argMaxLine,
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), aligned)
		}
		printLines(cmd.OutOrStdout(), models.FromAligned(aligned), false)
		return nil
	},
}

var wordsCmd = &cobra.Command{
	Use:   "words [file.lrc]",
	Short: "Show per-word timings for an LRC file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}
		lines := lrc.Parse(text)
		for i := range lines {
			if lines[i].HasWords() {
				align.CloseOpenWords(&lines[i])
			} else {
				lines[i].Words = align.GenerateWordTimings(lines[i])
			}
		}
		lang.PostProcess(lines, lang.Detect(text))
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), lines)
		}
		printLines(cmd.OutOrStdout(), lines, true)
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <got.lrc> <reference.lrc>",
	Short: "Compare two timed lyrics files line by line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		got, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		ref, err := readInput(cmd, args[1])
		if err != nil {
			return err
		}
		m := align.CompareAlignments(models.ToAligned(lrc.Parse(got)), models.ToAligned(lrc.Parse(ref)))
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), m)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "matched %d  MAE %.3fs  RMSE %.3fs  mean offset %+.3fs\n",
			m.Matched, m.MAE, m.RMSE, m.MeanOffset)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean <title>",
	Short: "Show how a decorated video title is cleaned for searching",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		cleaned := trackname.RemoveArtist(trackname.Clean(title), argArtist)
		strategies := provider.Strategies(provider.Query{Title: title, Artist: argArtist})
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"title":      title,
				"cleaned":    cleaned,
				"strategies": strategies,
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "original: %s\ncleaned:  %s\n\nsearch order:\n", title, cleaned)
		for i, st := range strategies {
			fmt.Fprintf(out, "%2d. %s\n", i+1, describeStrategy(st))
		}
		return nil
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect [text...]",
	Short: "Detect the language of lyrics (stdin when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			var err error
			if text, err = readInput(cmd, "-"); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), lang.Detect(text))
		return nil
	},
}

func describeStrategy(st provider.Strategy) string {
	p := st.Params
	if p.Q != "" {
		return fmt.Sprintf("%-24s q=%q", st.Name, p.Q)
	}
	return fmt.Sprintf("%-24s track=%q artist=%q", st.Name, p.TrackName, p.ArtistName)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	for _, c := range []*cobra.Command{fetchCmd, rawCmd, cleanCmd} {
		c.Flags().StringVarP(&argArtist, "artist", "a", "", "Artist name")
	}
	fetchCmd.Flags().StringVar(&argAlbum, "album", "", "Album name")
	fetchCmd.Flags().Float64VarP(&argDuration, "duration", "d", 0, "Track duration in seconds")
	fetchCmd.Flags().StringVar(&argAudio, "audio", "", "Audio file, URL or YouTube link for refinement")

	for _, c := range []*cobra.Command{fetchCmd, parseCmd} {
		c.Flags().BoolVarP(&argWords, "words", "w", false, "Print word timings")
	}

	alignCmd.Flags().Float64VarP(&argDuration, "duration", "d", 0, "Total duration in seconds (default 5s per line)")
	alignCmd.Flags().Float64Var(&argMinLine, "min", align.DefaultMinLineDuration, "Minimum line duration in seconds")
	alignCmd.Flags().Float64Var(&argMaxLine, "max", align.DefaultMaxLineDuration, "Maximum line duration in seconds")
}
