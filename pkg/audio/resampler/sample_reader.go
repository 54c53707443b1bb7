package resampler

import "io"

// frameReader returns whole frames from r. Bytes short of a frame are held
// until the next read and dropped at end of stream.
type frameReader struct {
	r         io.Reader
	frameSize int
	carry     []byte
}

func newFrameReader(r io.Reader, frameSize int) *frameReader {
	return &frameReader{
		r:         r,
		frameSize: frameSize,
		carry:     make([]byte, 0, frameSize-1),
	}
}

// Read returns 0 or a multiple of frameSize bytes.
func (fr *frameReader) Read(p []byte) (int, error) {
	if len(p) < fr.frameSize {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fr.frameSize*fr.frameSize]
	n := copy(p, fr.carry)
	fr.carry = fr.carry[:0]

	rn, err := fr.r.Read(p[n:])
	n += rn
	if mod := n % fr.frameSize; mod != 0 {
		n -= mod
		if err == nil {
			fr.carry = append(fr.carry, p[n:n+mod]...)
		}
	}
	return n, err
}
