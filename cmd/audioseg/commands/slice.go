package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/segment"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <input.opus>",
	Short: "Cut one time range out of an Ogg Opus file",
	Long: `Copy the packets of [start, start+duration) into a new Ogg Opus file
without decoding. Reading begins at the closest page boundary at or before
start; timestamps in the output start at zero.

Examples:
  audioseg slice podcast.opus --start 5m --duration 30s --to intro.opus`,
	Args: cobra.ExactArgs(1),
	RunE: runSlice,
}

var sliceFlags struct {
	start    time.Duration
	duration time.Duration
	track    int
	to       string
}

func init() {
	sliceCmd.Flags().DurationVar(&sliceFlags.start, "start", 0, "slice start")
	sliceCmd.Flags().DurationVar(&sliceFlags.duration, "duration", segment.DefaultSegmentDuration, "slice duration")
	sliceCmd.Flags().IntVar(&sliceFlags.track, "track", 0, "track index")
	sliceCmd.Flags().StringVar(&sliceFlags.to, "to", "", "output path inside the store (required)")
	sliceCmd.MarkFlagRequired("to")
}

type sliceOutput struct {
	Path string `json:"path" yaml:"path"`
	segment.SliceInfo `yaml:",inline"`
}

func runSlice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if sliceFlags.start < 0 || sliceFlags.duration <= 0 {
		return fmt.Errorf("start must not be negative and duration must be positive")
	}
	c, err := getContext()
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	d, err := segment.NewOggDemuxer(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	info, err := segment.ExtractSlice(ctx, d, sliceFlags.track, sliceFlags.start, sliceFlags.duration,
		segment.OggMuxer(ctx, store, sliceFlags.to))
	if err != nil {
		return err
	}
	if info.Samples == 0 {
		cli.PrintWarning("no packets in range; %s is empty", sliceFlags.to)
	}
	return outputResult(sliceOutput{Path: sliceFlags.to, SliceInfo: info}, cli.FormatYAML)
}
