package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/segment"
)

// Job describes one split. Zero fields fall back to context defaults and
// then to the segmenter defaults.
type Job struct {
	Input    string `yaml:"input" json:"input"`
	BaseName string `yaml:"base_name,omitempty" json:"base_name,omitempty"`

	// OutputDir is the directory inside the store that receives segments.
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`

	SegmentDurationMs int64 `yaml:"segment_duration_ms,omitempty" json:"segment_duration_ms,omitempty"`

	// MinSegmentMs is a pointer because zero is meaningful: keep every
	// remainder.
	MinSegmentMs *int64 `yaml:"min_segment_ms,omitempty" json:"min_segment_ms,omitempty"`

	// SampleRate, Channels and BitsPerSample describe headerless PCM input.
	SampleRate    int `yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`
	Channels      int `yaml:"channels,omitempty" json:"channels,omitempty"`
	BitsPerSample int `yaml:"bits_per_sample,omitempty" json:"bits_per_sample,omitempty"`

	// ResampleHz converts PCM input to 16-bit at this rate. ResampleChannels
	// defaults to mono.
	ResampleHz       int `yaml:"resample_hz,omitempty" json:"resample_hz,omitempty"`
	ResampleChannels int `yaml:"resample_channels,omitempty" json:"resample_channels,omitempty"`

	KeepPartial bool `yaml:"keep_partial,omitempty" json:"keep_partial,omitempty"`
}

// LoadJob reads a job file. "-" reads JSON or YAML from stdin.
func LoadJob(path string) (*Job, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return ParseJob(data, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return ParseJob(data, path)
}

// ParseJob decodes a job by the extension of filename: YAML for .yaml and
// .yml, JSON for .json, and YAML then JSON otherwise.
func ParseJob(data []byte, filename string) (*Job, error) {
	var job Job
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &job); err != nil {
			job = Job{}
			if err2 := json.Unmarshal(data, &job); err2 != nil {
				return nil, fmt.Errorf("failed to parse job (tried YAML and JSON)")
			}
		}
	}
	return &job, nil
}

// WithDefaults returns a copy of j with unset durations taken from d.
func (j Job) WithDefaults(d SegmentDefaults) Job {
	if j.SegmentDurationMs == 0 {
		j.SegmentDurationMs = d.SegmentDurationMs
	}
	if j.MinSegmentMs == nil && d.MinSegmentMs > 0 {
		v := d.MinSegmentMs
		j.MinSegmentMs = &v
	}
	return j
}

// Validate checks j and fills BaseName from Input.
func (j *Job) Validate() error {
	if j.Input == "" {
		return fmt.Errorf("job: input is required")
	}
	if j.SegmentDurationMs < 0 || (j.MinSegmentMs != nil && *j.MinSegmentMs < 0) {
		return fmt.Errorf("job: durations must not be negative")
	}
	if j.BaseName == "" {
		if j.Input == "-" {
			return fmt.Errorf("job: base_name is required when reading stdin")
		}
		base := filepath.Base(j.Input)
		j.BaseName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if strings.ContainsAny(j.BaseName, `/\`) {
		return fmt.Errorf("job: base_name %q must not contain path separators", j.BaseName)
	}
	return nil
}

// RawFormat returns the declared PCM format, if any.
func (j Job) RawFormat() (pcm.Format, bool) {
	if j.SampleRate == 0 {
		return pcm.Format{}, false
	}
	f := pcm.Format{SampleRate: j.SampleRate, Channels: j.Channels, Depth: j.BitsPerSample}
	if f.Channels == 0 {
		f.Channels = 1
	}
	if f.Depth == 0 {
		f.Depth = 16
	}
	return f, true
}

// SegmentOptions converts j to segmenter options.
func (j Job) SegmentOptions() []segment.Option {
	var opts []segment.Option
	if j.SegmentDurationMs > 0 {
		opts = append(opts, segment.WithSegmentDuration(time.Duration(j.SegmentDurationMs)*time.Millisecond))
	}
	if j.MinSegmentMs != nil {
		opts = append(opts, segment.WithMinSegmentDuration(time.Duration(*j.MinSegmentMs)*time.Millisecond))
	}
	if f, ok := j.RawFormat(); ok {
		opts = append(opts, segment.WithRawFormat(f))
	}
	if j.ResampleHz > 0 {
		ch := j.ResampleChannels
		if ch == 0 {
			ch = 1
		}
		opts = append(opts, segment.WithResample(pcm.Format{SampleRate: j.ResampleHz, Channels: ch, Depth: 16}))
	}
	if j.KeepPartial {
		opts = append(opts, segment.WithKeepPartial(true))
	}
	if j.OutputDir != "" {
		opts = append(opts, segment.WithDir(j.OutputDir))
	}
	return opts
}
