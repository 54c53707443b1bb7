package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/segment"
)

var probeCmd = &cobra.Command{
	Use:   "probe <input>",
	Short: "Identify a source and show its segment plan",
	Long: `Inspect the leading bytes of a source and report how it would be split.

For PCM sources the byte plan (frame size, target and minimum segment
bytes) is shown. For Ogg Opus sources the tracks are listed.

Examples:
  audioseg probe talk.wav
  audioseg probe mic.raw --rate 16000 --channels 1`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

var probeFlags struct {
	rate, channels, bits int
	segmentMs, minMs     int64
}

func init() {
	probeCmd.Flags().IntVar(&probeFlags.rate, "rate", 0, "sample rate of raw PCM input")
	probeCmd.Flags().IntVar(&probeFlags.channels, "channels", 1, "channel count of raw PCM input")
	probeCmd.Flags().IntVar(&probeFlags.bits, "bits", 16, "bits per sample of raw PCM input")
	probeCmd.Flags().Int64Var(&probeFlags.segmentMs, "segment-ms", segment.DefaultSegmentDuration.Milliseconds(), "segment duration in milliseconds")
	probeCmd.Flags().Int64Var(&probeFlags.minMs, "min-ms", segment.DefaultMinSegmentDuration.Milliseconds(), "minimum trailing segment in milliseconds")
}

type trackInfo struct {
	Index      int    `json:"index" yaml:"index"`
	Codec      string `json:"codec" yaml:"codec"`
	Channels   int    `json:"channels" yaml:"channels"`
	SampleRate int    `json:"input_sample_rate" yaml:"input_sample_rate"`
	Timescale  int    `json:"timescale" yaml:"timescale"`
}

type probeResult struct {
	Source     string             `json:"source" yaml:"source"`
	Descriptor segment.Descriptor `json:"descriptor" yaml:"descriptor"`
	Plan       *segment.Plan      `json:"plan,omitempty" yaml:"plan,omitempty"`
	Tracks     []trackInfo        `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	desc, _, err := segment.Probe(f)
	if err != nil {
		return err
	}
	res := probeResult{Source: args[0], Descriptor: desc}

	switch desc.Kind {
	case segment.RawPCM:
		if probeFlags.rate == 0 {
			cli.PrintWarning("headerless source; pass --rate to see its plan")
			break
		}
		res.Descriptor.Format.SampleRate = probeFlags.rate
		res.Descriptor.Format.Channels = probeFlags.channels
		res.Descriptor.Format.Depth = probeFlags.bits
		fallthrough
	case segment.WAV:
		plan, err := segment.PlanFor(res.Descriptor.Format, msDuration(probeFlags.segmentMs), msDuration(probeFlags.minMs))
		if err != nil {
			return err
		}
		res.Plan = &plan
	case segment.Encoded:
		if desc.Codec == "mp4" || desc.Codec == "mp3" {
			cli.PrintWarning("%s sources cannot be segmented", desc.Codec)
			break
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		d, err := segment.NewOggDemuxer(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		for _, t := range d.Tracks() {
			res.Tracks = append(res.Tracks, trackInfo{
				Index:      t.Index,
				Codec:      t.Codec,
				Channels:   t.Channels,
				SampleRate: t.SampleRate,
				Timescale:  t.Timescale,
			})
		}
	}
	return outputResult(res, cli.FormatYAML)
}
