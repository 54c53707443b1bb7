package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	contextName  string
	outputFile   string
	inputFile    string
	outputJSON   bool
	outputFormat string
	verbose      bool

	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "audioseg",
	Short: "Split long recordings into upload-sized segments",
	Long: `audioseg - split audio into fixed-duration segments.

Sources may be raw PCM, WAV, or Ogg Opus. PCM segments are written as
self-contained WAV (or raw) files; Ogg Opus is re-muxed without decoding.
Every split is recorded in a local manifest so its segments can be
transcribed or cleaned up later.

Configuration is stored in ~/.audioseg/ and supports multiple contexts,
similar to kubectl's context management.

Examples:
  # Split a WAV file into 10 s segments under the default local store
  audioseg split talk.wav

  # Split headerless 16 kHz mono PCM into 30 s segments
  audioseg split mic.raw --rate 16000 --segment-ms 30000

  # Use a job file and an S3 context, then transcribe
  audioseg -c prod split -f job.yaml --transcribe
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT cancels the running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.audioseg/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "job file (YAML or JSON, - for stdin)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "output format: yaml, json, table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(sliceCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(jobsCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = cli.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config: %v\n", err)
	}
}

func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the context selected by -c, the current context, or
// an unconfigured default.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// outputResult writes result using --format, then --json, defaulting to
// the given format.
func outputResult(result any, def cli.OutputFormat) error {
	format := def
	switch {
	case outputFormat != "":
		format = cli.OutputFormat(outputFormat)
	case outputJSON:
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}
