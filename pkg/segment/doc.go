// Package segment cuts audio recordings into bounded-duration segments that
// can be decoded on their own.
//
// Three kinds of source are supported, chosen by inspecting the first bytes
// of the input (see [Probe]):
//
//   - WAV: each segment gets a fresh 44-byte header sized to its payload.
//   - Raw PCM: segments are the bare payload; the format is supplied with
//     [WithRawFormat].
//   - Ogg Opus: packets are re-muxed into a new Ogg stream per segment with
//     timestamps rebased to zero (see [ExtractSlice]).
//
// Segment boundaries always fall on PCM frame boundaries. A trailing
// remainder shorter than the minimum segment duration is dropped instead of
// being emitted as a runt segment.
//
// Outputs are named {base}_part{index}.{wav,raw,opus} and written through a
// [storage.FileStore]. On failure every segment already written is removed
// unless [WithKeepPartial] is set, in which case the error is a
// [*PartialError] listing what was left behind.
package segment
