// Package audio groups the audio sub-packages used by the segmenter:
//
//   - pcm: linear PCM formats and frame arithmetic
//   - wav: RIFF/WAVE header parsing and writing
//   - resampler: sample rate and channel conversion
//   - ogg: Ogg page reading and writing
//   - codec/opus: Opus identification header and packet TOC parsing
//
// Example usage:
//
//	import "github.com/haivivi/audioseg/pkg/audio/pcm"
//
//	// 10 seconds of 16 kHz mono 16-bit audio
//	n := pcm.L16Mono16K.BytesInDuration(10 * time.Second) // 320000
package audio
