package pcm

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFormat is returned when format parameters are inconsistent, for
// example a bit depth that is not a whole number of bytes.
var ErrInvalidFormat = errors.New("pcm: invalid format")

var (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K = Format{SampleRate: 16000, Channels: 1, Depth: 16}
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K = Format{SampleRate: 24000, Channels: 1, Depth: 16}
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K = Format{SampleRate: 48000, Channels: 1, Depth: 16}
)

// Format describes interleaved little-endian linear PCM.
type Format struct {
	// SampleRate is the number of frames per second in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate" msgpack:"sample_rate"`

	// Channels is the number of interleaved channels in a frame.
	Channels int `yaml:"channels" json:"channels" msgpack:"channels"`

	// Depth is the bit depth of one sample.
	Depth int `yaml:"bits_per_sample" json:"bits_per_sample" msgpack:"bits_per_sample"`
}

// Validate reports whether f describes a supported linear PCM stream.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	if f.Depth != 8 && f.Depth != 16 {
		return fmt.Errorf("%w: %d bits per sample, want 8 or 16", ErrInvalidFormat, f.Depth)
	}
	return nil
}

// FrameSize returns the size in bytes of one frame: one sample for every
// channel.
func FrameSize(channels, bits int) (int, error) {
	if channels < 1 {
		return 0, fmt.Errorf("%w: channel count %d", ErrInvalidFormat, channels)
	}
	if bits <= 0 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: %d bits per sample is not byte aligned", ErrInvalidFormat, bits)
	}
	return channels * bits / 8, nil
}

// BytesForDuration returns the number of bytes that hold d of audio, rounded
// down to a whole frame.
func BytesForDuration(sampleRate, frameSize int, d time.Duration) int64 {
	if sampleRate <= 0 || frameSize <= 0 || d <= 0 {
		return 0
	}
	frames := int64(sampleRate) * int64(d) / int64(time.Second)
	return frames * int64(frameSize)
}

// FrameSize returns the size in bytes of one frame. It returns 0 for a
// format whose depth is not byte aligned.
func (f Format) FrameSize() int {
	n, err := FrameSize(f.Channels, f.Depth)
	if err != nil {
		return 0
	}
	return n
}

// Samples returns the number of frames in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	fs := f.FrameSize()
	if fs == 0 {
		return 0
	}
	return bytes / int64(fs)
}

// SamplesInDuration returns the number of frames in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return BytesForDuration(f.SampleRate, f.FrameSize(), d)
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate)
}

// AlignBytes rounds n down to a whole number of frames.
func (f Format) AlignBytes(n int64) int64 {
	fs := int64(f.FrameSize())
	if fs == 0 {
		return 0
	}
	return n - n%fs
}

// BitsRate returns the bit rate of the audio data.
func (f Format) BitsRate() int {
	return f.SampleRate * f.Channels * f.Depth
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.BitsRate() / 8
}

// BytesPerMillisecond returns the byte rate divided by 1000.
func (f Format) BytesPerMillisecond() float64 {
	return float64(f.BytesRate()) / 1000
}

// String returns the media type of the format, e.g.
// "audio/L16; rate=16000; channels=1".
func (f Format) String() string {
	return fmt.Sprintf("audio/L%d; rate=%d; channels=%d", f.Depth, f.SampleRate, f.Channels)
}
