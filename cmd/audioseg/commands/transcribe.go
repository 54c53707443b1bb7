package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/manifest"
	"github.com/haivivi/audioseg/pkg/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <job-id>",
	Short: "Transcribe the segments of a recorded job",
	Long: `Send each segment of a job to the context's transcription provider, in
order, and store the text in the manifest.

Examples:
  audioseg transcribe 7c9e6679-7425-40de-944b-e07fc1f90ae7
  audioseg -c gemini transcribe <job-id> --language zh`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var transcribeFlags struct {
	language string
	model    string
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeFlags.language, "language", "", "spoken language (ISO-639-1)")
	transcribeCmd.Flags().StringVar(&transcribeFlags.model, "model", "", "model override")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := getContext()
	if err != nil {
		return err
	}
	m, closeManifest, err := openManifest(c)
	if err != nil {
		return err
	}
	defer closeManifest()

	job, segs, err := m.Get(ctx, args[0])
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	tc := c.Transcribe
	if transcribeFlags.language != "" {
		tc.Language = transcribeFlags.language
	}
	if transcribeFlags.model != "" {
		tc.Model = transcribeFlags.model
	}
	tr, err := newTranscriber(ctx, tc)
	if err != nil {
		return err
	}

	out, err := transcribe.TranscribeAll(ctx, tr, store, manifest.Results(segs), func(t transcribe.Transcript) error {
		return m.SetTranscript(ctx, job.ID, t.Index, t.Text)
	})
	if err != nil {
		if len(out) > 0 {
			cli.PrintWarning("%d of %d segments transcribed before the failure", len(out), len(segs))
		}
		return err
	}
	return outputResult(out, cli.FormatYAML)
}
