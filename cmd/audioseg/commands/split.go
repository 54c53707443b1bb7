package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/manifest"
	"github.com/haivivi/audioseg/pkg/segment"
	"github.com/haivivi/audioseg/pkg/transcribe"
)

var splitCmd = &cobra.Command{
	Use:   "split [input]",
	Short: "Split a source into fixed-duration segments",
	Long: `Split a raw PCM, WAV or Ogg Opus source into consecutive segments.

Segments are named <base>_part<i>.<ext> and written to the context's store.
A trailing remainder shorter than the minimum duration is dropped. The job
is recorded in the manifest unless --no-record is given.

Settings come from flags, then the job file (-f), then the context.

Examples:
  audioseg split talk.wav
  audioseg split mic.raw --rate 16000 --segment-ms 30000 --min-ms 0
  cat mic.raw | audioseg split - --base mic --rate 16000
  audioseg -c prod split -f job.yaml --transcribe`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

var splitFlags struct {
	base        string
	outDir      string
	segmentMs   int64
	minMs       int64
	rate        int
	channels    int
	bits        int
	resampleHz  int
	keepPartial bool
	noRecord    bool
	transcribe  bool
}

func init() {
	f := splitCmd.Flags()
	f.StringVar(&splitFlags.base, "base", "", "base name of segment files (default: input file name)")
	f.StringVar(&splitFlags.outDir, "out-dir", "", "directory inside the store for segments")
	f.Int64Var(&splitFlags.segmentMs, "segment-ms", 0, "segment duration in milliseconds (default 10000)")
	f.Int64Var(&splitFlags.minMs, "min-ms", 0, "minimum trailing segment in milliseconds (default 2000)")
	f.IntVar(&splitFlags.rate, "rate", 0, "sample rate of raw PCM input")
	f.IntVar(&splitFlags.channels, "channels", 0, "channel count of raw PCM input (default 1)")
	f.IntVar(&splitFlags.bits, "bits", 0, "bits per sample of raw PCM input (default 16)")
	f.IntVar(&splitFlags.resampleHz, "resample-hz", 0, "resample PCM to 16-bit mono at this rate")
	f.BoolVar(&splitFlags.keepPartial, "keep-partial", false, "keep segments written before a failure")
	f.BoolVar(&splitFlags.noRecord, "no-record", false, "do not record the job in the manifest")
	f.BoolVar(&splitFlags.transcribe, "transcribe", false, "transcribe segments after splitting")
}

type splitOutput struct {
	JobID       string                  `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Source      string                  `json:"source" yaml:"source"`
	Kind        string                  `json:"kind" yaml:"kind"`
	Segments    []segment.Result        `json:"segments" yaml:"segments"`
	Transcripts []transcribe.Transcript `json:"transcripts,omitempty" yaml:"transcripts,omitempty"`

	report cli.SegmentReport
}

func (o splitOutput) Table() string { return o.report.Table() }

func runSplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := getContext()
	if err != nil {
		return err
	}

	job := &cli.Job{}
	if inputFile != "" {
		if job, err = cli.LoadJob(inputFile); err != nil {
			return err
		}
	}
	applySplitFlags(cmd, job, args)
	*job = job.WithDefaults(c.Segment)
	if err := job.Validate(); err != nil {
		return err
	}
	if job.Input == "-" && inputFile == "-" {
		return fmt.Errorf("stdin cannot carry both the job file and the audio")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}

	var src io.Reader
	var desc segment.Descriptor
	if job.Input == "-" {
		desc, src, err = segment.Probe(os.Stdin)
		if err != nil {
			return err
		}
	} else {
		f, err := os.Open(job.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		if desc, _, err = segment.Probe(f); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		src = f
	}

	seg := segment.New(store, append(job.SegmentOptions(), segment.WithLogger(slog.Default()))...)
	start := time.Now()
	results, err := seg.Split(ctx, src, job.BaseName)
	if err != nil {
		var pe *segment.PartialError
		if errors.As(err, &pe) {
			for _, r := range pe.Results {
				cli.PrintWarning("kept %s", r.Path)
			}
		}
		return err
	}
	slog.Debug("split finished", "segments", len(results), "took", time.Since(start))

	out := splitOutput{Source: job.Input, Kind: desc.Kind.String(), Segments: results}
	if !splitFlags.noRecord {
		m, closeManifest, err := openManifest(c)
		if err != nil {
			return err
		}
		defer closeManifest()

		rec, err := m.Record(ctx, manifestJob(job, desc), manifest.FromResults(results))
		if err != nil {
			return err
		}
		out.JobID = rec.ID

		if splitFlags.transcribe {
			tr, err := newTranscriber(ctx, c.Transcribe)
			if err != nil {
				return err
			}
			out.Transcripts, err = transcribe.TranscribeAll(ctx, tr, store, results, func(t transcribe.Transcript) error {
				return m.SetTranscript(ctx, rec.ID, t.Index, t.Text)
			})
			if err != nil {
				return err
			}
		}
	} else if splitFlags.transcribe {
		return fmt.Errorf("--transcribe needs the manifest; drop --no-record")
	}

	out.report = cli.SegmentReport{
		Title:   job.Input,
		Styles:  cli.NewStyles(cli.DefaultTheme),
		Results: results,
	}
	if out.JobID != "" {
		out.report.Footer = "job " + out.JobID
	}
	return outputResult(out, cli.FormatTable)
}

func applySplitFlags(cmd *cobra.Command, job *cli.Job, args []string) {
	if len(args) > 0 {
		job.Input = args[0]
	}
	changed := cmd.Flags().Changed
	if changed("base") {
		job.BaseName = splitFlags.base
	}
	if changed("out-dir") {
		job.OutputDir = splitFlags.outDir
	}
	if changed("segment-ms") {
		job.SegmentDurationMs = splitFlags.segmentMs
	}
	if changed("min-ms") {
		v := splitFlags.minMs
		job.MinSegmentMs = &v
	}
	if changed("rate") {
		job.SampleRate = splitFlags.rate
	}
	if changed("channels") {
		job.Channels = splitFlags.channels
	}
	if changed("bits") {
		job.BitsPerSample = splitFlags.bits
	}
	if changed("resample-hz") {
		job.ResampleHz = splitFlags.resampleHz
	}
	if changed("keep-partial") {
		job.KeepPartial = splitFlags.keepPartial
	}
}

// manifestJob describes job for the manifest, with effective durations and
// the format of the written segments.
func manifestJob(job *cli.Job, desc segment.Descriptor) manifest.Job {
	mj := manifest.Job{
		Source:    job.Input,
		BaseName:  job.BaseName,
		Kind:      desc.Kind.String(),
		Codec:     desc.Codec,
		Format:    desc.Format,
		SegmentMs: segment.DefaultSegmentDuration.Milliseconds(),
		MinMs:     segment.DefaultMinSegmentDuration.Milliseconds(),
	}
	if job.SegmentDurationMs > 0 {
		mj.SegmentMs = job.SegmentDurationMs
	}
	if job.MinSegmentMs != nil {
		mj.MinMs = min(*job.MinSegmentMs, mj.SegmentMs)
	}
	if f, ok := job.RawFormat(); ok && desc.Kind == segment.RawPCM {
		mj.Format = f
	}
	if job.ResampleHz > 0 && desc.Kind != segment.Encoded {
		ch := job.ResampleChannels
		if ch == 0 {
			ch = 1
		}
		mj.Format = pcm.Format{SampleRate: job.ResampleHz, Channels: ch, Depth: 16}
	}
	return mj
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
