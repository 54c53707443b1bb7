// Package cli holds the shared pieces of the audioseg command line.
//
// This package includes:
//   - Configuration contexts stored in ~/.audioseg/config.yaml
//   - Job files describing one split (YAML or JSON)
//   - Output formatting (YAML, JSON, table, raw)
//   - A styled segment report for terminals
//
// Contexts work like kubectl contexts: each one names a storage backend,
// segment defaults and transcription credentials, and one of them is
// current.
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext(name)
//	job, err := cli.LoadJob("job.yaml")
//	job = job.WithDefaults(ctx.Segment)
package cli
