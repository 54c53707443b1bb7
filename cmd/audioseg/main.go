// Package main provides the audioseg CLI tool.
//
// Usage:
//
//	audioseg [flags] <command> [args]
//
// Commands:
//
//	probe       - Identify a source and show its segment plan
//	split       - Split a source into fixed-duration segments
//	slice       - Cut one time range out of an Ogg Opus file
//	transcribe  - Transcribe the segments of a recorded job
//	jobs        - List, show and delete recorded jobs
//	config      - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.audioseg/
//	Use 'audioseg config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/audioseg/cmd/audioseg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
