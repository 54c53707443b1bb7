// Package resampler converts 16-bit linear PCM between sample rates and
// between mono and stereo, as a streaming io.Reader.
//
// Conversion is pure Go (github.com/tphakala/go-audio-resampling) at its
// high quality preset.
//
//	src := pcm.Format{SampleRate: 44100, Channels: 2, Depth: 16}
//	r, err := resampler.New(in, src, pcm.L16Mono16K)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	io.Copy(out, r)
package resampler
