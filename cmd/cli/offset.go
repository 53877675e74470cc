package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	argOffsetArtist string
	argOffsetTitle  string
)

var offsetCmd = &cobra.Command{
	Use:   "offset",
	Short: "Manage manual timing offsets",
	Long: `Offsets are added to the playback clock before the current line is
looked up, so a positive value shows lyrics earlier. The per-track and
global offsets are added together. Use -- before a negative value:
  lyryc offset set -t Song -a Band -- -0.4`,
}

var offsetGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the offsets that apply to a track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		svc, err := createService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		m := svc.Offsets()
		track, err := m.TrackOffset(ctx, argOffsetArtist, argOffsetTitle)
		if err != nil {
			return err
		}
		global, err := m.GlobalOffset(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]float64{"track": track, "global": global, "total": track + global})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "track %+.3fs  global %+.3fs  total %+.3fs\n", track, global, track+global)
		return nil
	},
}

var offsetSetCmd = &cobra.Command{
	Use:   "set <seconds>",
	Short: "Set the offset of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", args[0], err)
		}
		ctx, cancel := commandContext()
		defer cancel()
		svc, err := createService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Offsets().SetTrackOffset(ctx, argOffsetArtist, argOffsetTitle, sec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Offset for %s - %s set to %+.3fs\n", argOffsetArtist, argOffsetTitle, sec)
		return nil
	},
}

var offsetDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the offset of a track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		svc, err := createService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Offsets().DeleteTrackOffset(ctx, argOffsetArtist, argOffsetTitle); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Offset for %s - %s removed\n", argOffsetArtist, argOffsetTitle)
		return nil
	},
}

var offsetGlobalCmd = &cobra.Command{
	Use:   "global [seconds]",
	Short: "Show or set the global offset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		svc, err := createService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		m := svc.Offsets()
		if len(args) == 1 {
			sec, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", args[0], err)
			}
			if err := m.SetGlobalOffset(ctx, sec); err != nil {
				return err
			}
		}
		global, err := m.GlobalOffset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "global %+.3fs\n", global)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{offsetGetCmd, offsetSetCmd, offsetDeleteCmd} {
		c.Flags().StringVarP(&argOffsetArtist, "artist", "a", "", "Artist name")
		c.Flags().StringVarP(&argOffsetTitle, "title", "t", "", "Track title")
		c.MarkFlagRequired("title")
	}
	offsetCmd.AddCommand(offsetGetCmd, offsetSetCmd, offsetDeleteCmd, offsetGlobalCmd)
}
