package segment

import (
	"fmt"
	"time"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
)

// SourceKind tells how a source is framed.
type SourceKind int

const (
	// RawPCM is headerless linear PCM.
	RawPCM SourceKind = iota
	// WAV is linear PCM behind a canonical 44-byte header.
	WAV
	// Encoded is compressed audio inside a media container.
	Encoded
)

func (k SourceKind) String() string {
	switch k {
	case RawPCM:
		return "raw"
	case WAV:
		return "wav"
	case Encoded:
		return "encoded"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// Ext returns the file extension used for segments of this kind.
func (k SourceKind) Ext() string {
	switch k {
	case WAV:
		return ".wav"
	case Encoded:
		return ".opus"
	}
	return ".raw"
}

// Descriptor describes a probed source. Format is fully populated for PCM
// sources; for encoded sources it carries the sample rate and channel count
// when the container declares them. Codec is set for encoded sources.
type Descriptor struct {
	Kind   SourceKind `json:"kind" yaml:"kind"`
	Format pcm.Format `json:"format" yaml:"format"`
	Codec  string     `json:"codec,omitempty" yaml:"codec,omitempty"`
}

// Plan holds the byte sizes derived from a PCM format and the segment
// durations. TargetBytes and MinViableBytes are whole frames.
type Plan struct {
	FrameSize           int     `json:"frame_size" yaml:"frame_size"`
	BytesPerMillisecond float64 `json:"bytes_per_ms" yaml:"bytes_per_ms"`
	TargetBytes         int64   `json:"target_bytes" yaml:"target_bytes"`
	MinViableBytes      int64   `json:"min_viable_bytes" yaml:"min_viable_bytes"`
}

// PlanFor derives the plan for f. minViable is clamped to segment.
func PlanFor(f pcm.Format, segment, minViable time.Duration) (Plan, error) {
	if err := f.Validate(); err != nil {
		return Plan{}, err
	}
	if segment <= 0 {
		return Plan{}, fmt.Errorf("%w: segment duration %v", ErrInvalidFormat, segment)
	}
	minViable = min(max(minViable, 0), segment)
	p := Plan{
		FrameSize:           f.FrameSize(),
		BytesPerMillisecond: f.BytesPerMillisecond(),
		TargetBytes:         f.BytesInDuration(segment),
		MinViableBytes:      f.BytesInDuration(minViable),
	}
	if p.TargetBytes == 0 {
		return Plan{}, fmt.Errorf("%w: %v holds no whole frame at %d Hz", ErrInvalidFormat, segment, f.SampleRate)
	}
	return p, nil
}

// Result describes one emitted segment. Bytes counts the payload only,
// without any container header. Path is relative to the store and owned by
// the caller once returned.
type Result struct {
	Index    int           `json:"index" yaml:"index"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Path     string        `json:"path" yaml:"path"`
}

// DurationMs returns the duration in milliseconds.
func (r Result) DurationMs() float64 {
	return float64(r.Duration) / float64(time.Millisecond)
}
