// Package opus inspects Opus packets and the identification header carried
// by Ogg encapsulation. It does not decode audio.
//
// References:
//   - https://datatracker.ietf.org/doc/html/rfc6716 (packet format)
//   - https://datatracker.ietf.org/doc/html/rfc7845 (Ogg mapping)
package opus

import (
	"fmt"
	"time"
)

// SampleRate is the clock of Opus granule positions and sample counts,
// regardless of the input sample rate.
const SampleRate = 48000

type (
	// TOC is the table-of-contents byte that starts every Opus packet:
	//
	//	 0 1 2 3 4 5 6 7
	//	+-+-+-+-+-+-+-+-+
	//	| config  |s| c |
	//	+-+-+-+-+-+-+-+-+
	//
	// https://datatracker.ietf.org/doc/html/rfc6716#section-3.1
	TOC byte

	// Configuration is the 5-bit config field of a TOC byte. It selects the
	// mode, bandwidth, and frame size.
	Configuration byte

	// Mode is the coding layer used by a configuration.
	Mode byte

	// Bandwidth is the audio bandwidth of a configuration.
	Bandwidth byte

	// FrameCode is the 2-bit frame count code of a TOC byte.
	FrameCode byte
)

// Coding modes.
const (
	Silk Mode = iota + 1
	Hybrid
	CELT
)

// Bandwidths.
const (
	NB Bandwidth = iota + 1
	MB
	WB
	SWB
	FB
)

// Frame count codes.
const (
	OneFrame FrameCode = iota
	TwoEqualFrames
	TwoDifferentFrames
	ArbitraryFrames
)

// Configuration returns the config field.
func (t TOC) Configuration() Configuration { return Configuration(t >> 3) }

// IsStereo reports whether the s bit is set.
func (t TOC) IsStereo() bool { return t&0b100 != 0 }

// FrameCode returns the c field.
func (t TOC) FrameCode() FrameCode { return FrameCode(t & 0b11) }

func (t TOC) String() string {
	c := t.Configuration()
	return fmt.Sprintf("opus_toc: config=%d mode=%s bw=%s stereo=%v code=%d frame=%s",
		c, c.Mode(), c.Bandwidth(), t.IsStereo(), t.FrameCode(), c.FrameDuration())
}

// Mode returns the coding mode.
//
//	0...11  SILK-only
//	12..15  Hybrid
//	16..31  CELT-only
func (c Configuration) Mode() Mode {
	switch {
	case c <= 11:
		return Silk
	case c <= 15:
		return Hybrid
	case c <= 31:
		return CELT
	}
	return 0
}

// Bandwidth returns the audio bandwidth.
func (c Configuration) Bandwidth() Bandwidth {
	switch {
	case c <= 3:
		return NB
	case c <= 7:
		return MB
	case c <= 11:
		return WB
	case c <= 13:
		return SWB
	case c <= 15:
		return FB
	case c <= 19:
		return NB
	case c <= 23:
		return WB
	case c <= 27:
		return SWB
	case c <= 31:
		return FB
	}
	return 0
}

// FrameSamples returns the number of 48 kHz samples in one frame of this
// configuration, which is also its Ogg granule increment.
func (c Configuration) FrameSamples() int {
	if c > 31 {
		return 0
	}
	switch c.Mode() {
	case Silk:
		// 10, 20, 40, 60 ms
		return [4]int{480, 960, 1920, 2880}[c%4]
	case Hybrid:
		// 10, 20 ms
		return [2]int{480, 960}[c%2]
	default:
		// 2.5, 5, 10, 20 ms
		return [4]int{120, 240, 480, 960}[c%4]
	}
}

// FrameDuration returns the length of one frame of this configuration.
func (c Configuration) FrameDuration() time.Duration {
	return time.Duration(c.FrameSamples()) * time.Second / SampleRate
}

func (m Mode) String() string {
	switch m {
	case Silk:
		return "SILK"
	case Hybrid:
		return "Hybrid"
	case CELT:
		return "CELT"
	}
	return "invalid"
}

func (b Bandwidth) String() string {
	switch b {
	case NB:
		return "NB"
	case MB:
		return "MB"
	case WB:
		return "WB"
	case SWB:
		return "SWB"
	case FB:
		return "FB"
	}
	return "invalid"
}

// SampleRate returns the effective sample rate for the bandwidth.
func (b Bandwidth) SampleRate() int {
	switch b {
	case NB:
		return 8000
	case MB:
		return 12000
	case WB:
		return 16000
	case SWB:
		return 24000
	case FB:
		return 48000
	}
	return 0
}

// ParseFrameCountByte splits the byte that follows the TOC in a code 3
// packet.
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	|v|p|     M     |
//	+-+-+-+-+-+-+-+-+
func ParseFrameCountByte(in byte) (isVBR, hasPadding bool, frameCount int) {
	return in&0b10000000 != 0, in&0b01000000 != 0, int(in & 0b00111111)
}
