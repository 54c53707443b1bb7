package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat names an output encoding.
type OutputFormat string

const (
	// FormatYAML outputs as YAML (default).
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatTable outputs a styled table for values implementing Tabler.
	FormatTable OutputFormat = "table"
	// FormatRaw writes strings and byte slices as is.
	FormatRaw OutputFormat = "raw"
)

// Tabler is implemented by results that have a table rendering.
type Tabler interface {
	Table() string
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File is the output path; empty means Writer, then stdout.
	File string

	Writer io.Writer
}

// Output writes result in the configured format.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	}
	if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatTable:
		t, ok := result.(Tabler)
		if !ok {
			return outputYAML(w, result)
		}
		_, err := fmt.Fprintln(w, t.Table())
		return err
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		}
		return outputYAML(w, result)
	}
	return fmt.Errorf("unsupported output format: %s", opts.Format)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// PrintSuccess prints a success line to stderr.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

// PrintError prints an error line to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintWarning prints a warning line to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}
