package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Error0229/Lyryc-sub000/internal/config"
	"github.com/Error0229/Lyryc-sub000/pkg/logger"
	"github.com/Error0229/Lyryc-sub000/pkg/lyryc"
)

// Global flags
var (
	cfg *config.Config

	dbPath     string
	tempDir    string
	sampleRate int
	aiAlign    bool
	jsonOut    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "lyryc",
	Short:         "Fetch, time and inspect synchronized lyrics",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		if flags.Changed("db") {
			cfg.DBPath = dbPath
		}
		if flags.Changed("temp") {
			cfg.TempDir = tempDir
		}
		if flags.Changed("rate") {
			cfg.SampleRate = sampleRate
		}
		if flags.Changed("ai") {
			cfg.AIAlignment = aiAlign
		}
		if verbose {
			logger.SetLevel(logger.DEBUG)
		}
	},
}

func init() {
	cfg = config.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", cfg.DBPath, "Path to the SQLite database file")
	pf.StringVar(&tempDir, "temp", cfg.TempDir, "Directory for temporary audio files")
	pf.IntVar(&sampleRate, "rate", cfg.SampleRate, "Audio sample rate for refinement")
	pf.BoolVar(&aiAlign, "ai", cfg.AIAlignment, "Refine timings against the audio when a source is given")
	pf.BoolVar(&jsonOut, "json", false, "Print JSON instead of text")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		fetchCmd, rawCmd, parseCmd, alignCmd, wordsCmd, compareCmd,
		cleanCmd, detectCmd, refineCmd, spectrogramCmd, offsetCmd,
	)
}

// createService builds a lyrics service from the loaded configuration.
func createService(ctx context.Context) (*lyryc.Service, error) {
	return lyryc.NewServiceFromConfig(ctx, cfg, lyryc.WithLogger(logger.GetLogger()))
}

// commandContext is cancelled on SIGINT / SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// readInput reads a file, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTime renders seconds as mm:ss.cc.
func formatTime(sec float64) string {
	if sec < 0 {
		return "-" + formatTime(-sec)
	}
	cs := int(sec*100 + 0.5)
	return fmt.Sprintf("%02d:%02d.%02d", cs/6000, cs/100%60, cs%100)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.GetLogger().Errorf("%v", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
