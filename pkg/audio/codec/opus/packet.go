package opus

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPacket is returned for packets whose TOC cannot be interpreted.
var ErrInvalidPacket = errors.New("opus: invalid packet")

// maxPacketSamples is 120 ms at 48 kHz, the longest duration a packet may
// carry.
const maxPacketSamples = 5760

// Packet is one encoded Opus packet.
type Packet []byte

// TOC returns the first byte of the packet.
func (p Packet) TOC() TOC {
	if len(p) == 0 {
		return 0
	}
	return TOC(p[0])
}

// FrameCount returns the number of frames in the packet.
func (p Packet) FrameCount() (int, error) {
	if len(p) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPacket)
	}
	switch p.TOC().FrameCode() {
	case OneFrame:
		return 1, nil
	case TwoEqualFrames, TwoDifferentFrames:
		return 2, nil
	default:
		if len(p) < 2 {
			return 0, fmt.Errorf("%w: code 3 packet without frame count", ErrInvalidPacket)
		}
		_, _, n := ParseFrameCountByte(p[1])
		if n == 0 {
			return 0, fmt.Errorf("%w: zero frames", ErrInvalidPacket)
		}
		return n, nil
	}
}

// Samples returns the number of 48 kHz samples the packet decodes to.
func (p Packet) Samples() (int, error) {
	n, err := p.FrameCount()
	if err != nil {
		return 0, err
	}
	s := n * p.TOC().Configuration().FrameSamples()
	if s > maxPacketSamples {
		return 0, fmt.Errorf("%w: %d samples exceeds 120ms", ErrInvalidPacket, s)
	}
	return s, nil
}

// Duration returns the playback length of the packet.
func (p Packet) Duration() (time.Duration, error) {
	s, err := p.Samples()
	if err != nil {
		return 0, err
	}
	return time.Duration(s) * time.Second / SampleRate, nil
}
