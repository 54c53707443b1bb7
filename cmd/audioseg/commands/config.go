package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage audioseg configuration.

Configuration is stored in ~/.audioseg/config.yaml.
Multiple contexts can be defined for different stores or accounts.`,
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Add or update a context",
	Long: `Add a context, or update the given settings of an existing one.

Examples:
  audioseg config set-context local --dir ~/segments
  audioseg config set-context prod --storage s3 --bucket audio --prefix calls \
      --region eu-west-1 --openai-key sk-xxxxx
  audioseg config set-context minio --storage s3 --bucket audio \
      --endpoint http://localhost:9000 --path-style`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := args[0]
		ctx, ok := cfg.Contexts[name]
		if !ok {
			ctx = &cli.Context{}
		}
		for flag, key := range contextFlagKeys {
			if !cmd.Flags().Changed(flag) {
				continue
			}
			value := cmd.Flags().Lookup(flag).Value.String()
			if err := ctx.Set(key, value); err != nil {
				return err
			}
		}
		if err := cfg.SetContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' saved", name)
		return nil
	},
}

// contextFlagKeys maps set-context flags to context keys.
var contextFlagKeys = map[string]string{
	"storage":      "storage.kind",
	"dir":          "storage.dir",
	"bucket":       "storage.bucket",
	"prefix":       "storage.prefix",
	"region":       "storage.region",
	"endpoint":     "storage.endpoint",
	"access-key":   "storage.access_key",
	"secret-key":   "storage.secret_key",
	"path-style":   "storage.path_style",
	"segment-ms":   "segment.segment_duration_ms",
	"min-ms":       "segment.min_segment_ms",
	"manifest-dir": "manifest_dir",
	"provider":     "transcribe.provider",
	"openai-key":   "transcribe.openai_api_key",
	"gemini-key":   "transcribe.gemini_api_key",
	"base-url":     "transcribe.base_url",
	"model":        "transcribe.model",
	"language":     "transcribe.language",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting of the selected context",
	Long: `Set one setting by its dotted key on the context chosen with -c, or the
current context.

Examples:
  audioseg config set segment.segment_duration_ms 30000
  audioseg -c prod config set transcribe.provider gemini`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := contextName
		if name == "" {
			name = cfg.CurrentContext
		}
		if name == "" {
			return fmt.Errorf("no context selected. Use -c or 'audioseg config use-context'")
		}
		ctx, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		if err := ctx.Set(args[0], args[1]); err != nil {
			return err
		}
		return cfg.Save()
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context '%s'", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Show the current context name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			ctx := cfg.Contexts[name]
			kind := ctx.Storage.Kind
			if kind == "" {
				kind = "local"
			}
			fmt.Printf("%s%s (%s)\n", marker, name, kind)
		}
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the selected context with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		return outputResult(ctx.Masked(), cli.FormatYAML)
	},
}

func init() {
	f := configSetContextCmd.Flags()
	f.String("storage", "", "storage kind: local or s3")
	f.String("dir", "", "root directory of the local store")
	f.String("bucket", "", "S3 bucket")
	f.String("prefix", "", "S3 key prefix")
	f.String("region", "", "S3 region")
	f.String("endpoint", "", "S3-compatible endpoint URL")
	f.String("access-key", "", "S3 access key")
	f.String("secret-key", "", "S3 secret key")
	f.Bool("path-style", false, "use path-style S3 addressing")
	f.Int64("segment-ms", 0, "default segment duration in milliseconds")
	f.Int64("min-ms", 0, "default minimum trailing segment in milliseconds")
	f.String("manifest-dir", "", "manifest directory")
	f.String("provider", "", "transcription provider: openai or gemini")
	f.String("openai-key", "", "OpenAI API key")
	f.String("gemini-key", "", "Gemini API key")
	f.String("base-url", "", "transcription API base URL")
	f.String("model", "", "transcription model")
	f.String("language", "", "transcription language")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
