package resampler

import (
	"errors"
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
)

// ErrUnsupportedFormat is returned for formats other than 16-bit mono or
// stereo.
var ErrUnsupportedFormat = errors.New("resampler: unsupported format")

// Converter wraps an io.Reader of srcFmt audio and yields dstFmt audio.
// Close must be called to release the filter state.
type Converter struct {
	srcFmt pcm.Format
	dstFmt pcm.Format
	src    io.Reader

	readBuf []byte

	mu       sync.Mutex
	closeErr error
	leftover []byte

	// filters holds one mono filter per output channel; nil when only the
	// channel layout changes.
	filters []resampling.Resampler
	pending [][]float64
	// inFrames and outFrames count frames fed to and emitted from the
	// filters. At end of stream the output is cut or padded to
	// round(inFrames * dst / src) frames.
	inFrames  int64
	outFrames int64
	flushed   bool
}

func checkFormat(f pcm.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Depth != 16 || f.Channels > 2 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

// New returns a Converter from srcFmt to dstFmt. Both formats must be 16-bit
// with one or two channels.
func New(src io.Reader, srcFmt, dstFmt pcm.Format) (*Converter, error) {
	if err := checkFormat(srcFmt); err != nil {
		return nil, err
	}
	if err := checkFormat(dstFmt); err != nil {
		return nil, err
	}
	c := &Converter{
		srcFmt: srcFmt,
		dstFmt: dstFmt,
		src:    newFrameReader(src, srcFmt.FrameSize()),
	}
	if srcFmt.SampleRate != dstFmt.SampleRate {
		// The library's Process and Flush only drive its first channel, so
		// each channel gets a filter of its own.
		for range dstFmt.Channels {
			filter, err := resampling.New(&resampling.Config{
				InputRate:  float64(srcFmt.SampleRate),
				OutputRate: float64(dstFmt.SampleRate),
				Channels:   1,
				Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
			})
			if err != nil {
				return nil, fmt.Errorf("resampler: %s -> %s: %w", srcFmt, dstFmt, err)
			}
			c.filters = append(c.filters, filter)
		}
		c.pending = make([][]float64, dstFmt.Channels)
	}
	return c, nil
}

// Format returns the output format.
func (c *Converter) Format() pcm.Format { return c.dstFmt }

// Read fills p with whole frames of converted audio. It is not safe for
// concurrent use.
func (c *Converter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fs := c.dstFmt.FrameSize()
	if len(p) < fs {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fs*fs]

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.leftover) > 0 {
		n := copy(p, c.leftover)
		c.leftover = c.leftover[n:]
		return n, nil
	}
	if c.closeErr != nil {
		return 0, c.closeErr
	}
	if c.filters == nil {
		return c.readChannels(p)
	}
	return c.readResampled(p)
}

// readChannels handles the equal-rate case, where only the channel layout
// may change.
func (c *Converter) readChannels(p []byte) (int, error) {
	n, err := c.readSource(len(p))
	if n == 0 {
		return 0, err
	}
	copy(p, c.readBuf[:n])
	return n, err
}

// readResampled feeds source audio through the filters until output is
// available. At end of stream the filters are flushed before io.EOF is
// returned.
func (c *Converter) readResampled(p []byte) (int, error) {
	ratio := float64(c.srcFmt.SampleRate) / float64(c.dstFmt.SampleRate)
	for len(c.leftover) == 0 {
		if c.flushed {
			return 0, io.EOF
		}
		want := int(float64(len(p))*ratio) + c.dstFmt.FrameSize()*4
		want -= want % c.dstFmt.FrameSize()

		n, readErr := c.readSource(want)
		if n > 0 {
			if err := c.process(c.readBuf[:n]); err != nil {
				return 0, err
			}
			c.emit(c.expected())
		}
		switch {
		case readErr == io.EOF:
			if err := c.flush(); err != nil {
				return 0, err
			}
		case readErr != nil:
			return 0, readErr
		}
	}
	m := copy(p, c.leftover)
	c.leftover = c.leftover[m:]
	return m, nil
}

// process deinterleaves b and runs each channel through its filter.
func (c *Converter) process(b []byte) error {
	ch := len(c.filters)
	frames := len(b) / (2 * ch)
	in := make([][]float64, ch)
	for i := range in {
		in[i] = make([]float64, frames)
	}
	for f := range frames {
		for i := range ch {
			off := (f*ch + i) * 2
			s := int16(b[off]) | int16(b[off+1])<<8
			in[i][f] = float64(s) / 32768.0
		}
	}
	for i, filter := range c.filters {
		out, err := filter.Process(in[i])
		if err != nil {
			return fmt.Errorf("resampler: channel %d: %w", i, err)
		}
		c.pending[i] = append(c.pending[i], out...)
	}
	c.inFrames += int64(frames)
	return nil
}

// flush drains the filters and settles the output length.
func (c *Converter) flush() error {
	c.flushed = true
	// Trailing silence pushes the last source samples through the filter
	// delay line; whatever it adds beyond the expected length is cut.
	pad := make([]float64, c.srcFmt.SampleRate/10)
	for i, filter := range c.filters {
		out, err := filter.Process(pad)
		if err != nil {
			return fmt.Errorf("resampler: channel %d: %w", i, err)
		}
		tail, err := filter.Flush()
		if err != nil {
			return fmt.Errorf("resampler: channel %d: %w", i, err)
		}
		c.pending[i] = append(append(c.pending[i], out...), tail...)
	}
	want := c.expected()
	for i := range c.pending {
		if short := want - c.outFrames - int64(len(c.pending[i])); short > 0 {
			c.pending[i] = append(c.pending[i], make([]float64, short)...)
		}
	}
	c.emit(want)
	return nil
}

// expected returns the number of output frames that inFrames source
// frames convert to, rounded to the nearest frame.
func (c *Converter) expected() int64 {
	src, dst := int64(c.srcFmt.SampleRate), int64(c.dstFmt.SampleRate)
	return (c.inFrames*dst + src/2) / src
}

// emit interleaves pending frames into c.leftover, never letting the
// total output pass limit frames.
func (c *Converter) emit(limit int64) {
	n := int64(len(c.pending[0]))
	for _, p := range c.pending[1:] {
		n = min(n, int64(len(p)))
	}
	n = max(min(n, limit-c.outFrames), 0)
	if n == 0 {
		return
	}
	ch := len(c.pending)
	out := make([]byte, 0, int(n)*2*ch)
	for f := range n {
		for i := range ch {
			out = appendSample(out, c.pending[i][f])
		}
	}
	for i := range c.pending {
		c.pending[i] = c.pending[i][n:]
	}
	c.outFrames += n
	c.leftover = append(c.leftover, out...)
}

func appendSample(b []byte, s float64) []byte {
	var v int16
	switch {
	case s >= 1.0:
		v = 32767
	case s < -1.0:
		v = -32768
	default:
		v = int16(s * 32767.0)
	}
	return append(b, byte(v), byte(v>>8))
}

// readSource reads up to dstLen bytes of source audio converted to the
// destination channel layout into c.readBuf.
func (c *Converter) readSource(dstLen int) (int, error) {
	srcLen := dstLen * c.srcFmt.Channels / c.dstFmt.Channels
	if size := max(srcLen, dstLen); cap(c.readBuf) < size {
		c.readBuf = make([]byte, size)
	}
	n, err := c.src.Read(c.readBuf[:srcLen])
	if n == 0 {
		return 0, err
	}
	switch {
	case c.srcFmt.Channels == 2 && c.dstFmt.Channels == 1:
		return stereoToMono(c.readBuf[:n]), err
	case c.srcFmt.Channels == 1 && c.dstFmt.Channels == 2:
		return monoToStereo(c.readBuf[:n*2]), err
	}
	return n, err
}

// Close releases the filter. Subsequent reads return io.ErrClosedPipe.
func (c *Converter) Close() error {
	return c.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError is like Close but subsequent reads return err.
func (c *Converter) CloseWithError(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr == nil {
		c.closeErr = err
	}
	c.filters = nil
	c.pending = nil
	c.leftover = nil
	return nil
}

// stereoToMono averages L and R in place and returns the mono length.
func stereoToMono(b []byte) int {
	frames := len(b) / 4
	for i := range frames {
		j, k := i*4, i*2
		l := int16(b[j]) | int16(b[j+1])<<8
		r := int16(b[j+2]) | int16(b[j+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[k], b[k+1] = byte(m), byte(m>>8)
	}
	return frames * 2
}

// monoToStereo duplicates each sample in place. The mono samples occupy the
// first half of b.
func monoToStereo(b []byte) int {
	for i := len(b)/4 - 1; i >= 0; i-- {
		s0, s1 := b[i*2], b[i*2+1]
		j := i * 4
		b[j], b[j+1] = s0, s1
		b[j+2], b[j+3] = s0, s1
	}
	return len(b)
}
