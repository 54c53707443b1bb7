// Package pcm provides types and utilities for working with linear PCM
// (Pulse Code Modulation) audio data.
//
// A Format describes interleaved little-endian PCM by sample rate, channel
// count and bit depth. The frame arithmetic helpers convert between
// durations and byte counts and always round down to whole frames, so a
// byte range computed from a duration never splits a frame across channels.
//
// Key types:
//   - Format: sample rate, channels and bit depth
//
// Example usage:
//
//	// Calculate bytes needed for 10s of 16kHz mono 16-bit audio
//	size := pcm.BytesForDuration(16000, 2, 10*time.Second) // 320000
//
//	// Or through a Format
//	bytes := pcm.L16Mono16K.BytesInDuration(20 * time.Millisecond)
package pcm
