package segment

import (
	"log/slog"
	"time"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
)

// Defaults for the segment durations.
const (
	DefaultSegmentDuration    = 10 * time.Second
	DefaultMinSegmentDuration = 2 * time.Second
)

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithSegmentDuration sets the target segment length.
func WithSegmentDuration(d time.Duration) Option {
	return func(s *Segmenter) { s.segment = d }
}

// WithMinSegmentDuration sets the shortest trailing segment that is still
// emitted. Values above the segment duration are clamped to it.
func WithMinSegmentDuration(d time.Duration) Option {
	return func(s *Segmenter) { s.minViable = d }
}

// WithRawFormat declares the format of headerless PCM sources.
func WithRawFormat(f pcm.Format) Option {
	return func(s *Segmenter) { s.rawFormat = &f }
}

// WithResample converts PCM sources to f before segmenting. Only 16-bit
// mono or stereo formats are supported.
func WithResample(f pcm.Format) Option {
	return func(s *Segmenter) { s.resample = &f }
}

// WithKeepPartial leaves already written segments on storage when a split
// fails, and reports them through *PartialError.
func WithKeepPartial(keep bool) Option {
	return func(s *Segmenter) { s.keepPartial = keep }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

// WithDir places outputs under dir within the store.
func WithDir(dir string) Option {
	return func(s *Segmenter) { s.dir = dir }
}
