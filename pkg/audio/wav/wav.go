// Package wav encodes and decodes the canonical 44-byte RIFF/WAVE header
// that precedes linear PCM payloads.
//
// Layout (all integers little-endian):
//
//	offset  size  field
//	     0     4  "RIFF"
//	     4     4  RIFF chunk size (payload + 36)
//	     8     4  "WAVE"
//	    12     4  "fmt "
//	    16     4  fmt chunk size (16)
//	    20     2  audio format (1 = PCM)
//	    22     2  channels
//	    24     4  sample rate
//	    28     4  byte rate (sample rate * block align)
//	    32     2  block align (channels * bits / 8)
//	    34     2  bits per sample
//	    36     4  "data"
//	    40     4  data chunk size (payload)
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
)

const (
	// HeaderSize is the size of a canonical WAV header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format tag for uncompressed PCM.
	FormatPCM = 1

	// riffOverhead is the number of header bytes counted by the RIFF chunk
	// size in front of the payload.
	riffOverhead = 36

	fmtChunkSize = 16
)

var (
	// ErrMalformedHeader is returned when a header is truncated, carries the
	// wrong magic tags, or has fields that disagree with each other.
	ErrMalformedHeader = errors.New("wav: malformed header")

	// ErrPayloadTooLarge is returned when a payload cannot be described by
	// the 32-bit RIFF size fields.
	ErrPayloadTooLarge = errors.New("wav: payload too large")
)

// Header holds the fields of a canonical WAV header.
type Header struct {
	RiffChunkSize uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataChunkSize uint32
}

// NewHeader returns a PCM header describing payload bytes of format f.
func NewHeader(f pcm.Format, payload int64) (Header, error) {
	if err := f.Validate(); err != nil {
		return Header{}, err
	}
	blockAlign := f.FrameSize()
	h := Header{
		AudioFormat:   FormatPCM,
		Channels:      uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(f.Depth),
	}
	return h.ForPayload(payload)
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedHeader, len(b), HeaderSize)
	}
	for _, tag := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(b[tag.off : tag.off+4]); got != tag.want {
			return Header{}, fmt.Errorf("%w: tag %q at offset %d, want %q", ErrMalformedHeader, got, tag.off, tag.want)
		}
	}
	if n := binary.LittleEndian.Uint32(b[16:20]); n != fmtChunkSize {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d, want %d", ErrMalformedHeader, n, fmtChunkSize)
	}

	h := Header{
		RiffChunkSize: binary.LittleEndian.Uint32(b[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(b[20:22]),
		Channels:      binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataChunkSize: binary.LittleEndian.Uint32(b[40:44]),
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// ReadHeader reads and decodes a header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: short header: %v", ErrMalformedHeader, err)
		}
		return Header{}, err
	}
	return ParseHeader(b[:])
}

func (h Header) validate() error {
	if h.AudioFormat != FormatPCM {
		return fmt.Errorf("%w: audio format %d is not PCM", ErrMalformedHeader, h.AudioFormat)
	}
	if h.Channels == 0 || h.SampleRate == 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrMalformedHeader, h.Channels, h.SampleRate)
	}
	if h.BitsPerSample == 0 || h.BitsPerSample%8 != 0 {
		return fmt.Errorf("%w: %d bits per sample", ErrMalformedHeader, h.BitsPerSample)
	}
	if want := h.Channels * h.BitsPerSample / 8; h.BlockAlign != want {
		return fmt.Errorf("%w: block align %d, want %d", ErrMalformedHeader, h.BlockAlign, want)
	}
	if want := h.SampleRate * uint32(h.BlockAlign); h.ByteRate != want {
		return fmt.Errorf("%w: byte rate %d, want %d", ErrMalformedHeader, h.ByteRate, want)
	}
	return nil
}

// ForPayload returns a copy of h whose size fields describe a payload of n
// bytes. Format fields are carried through unchanged.
func (h Header) ForPayload(n int64) (Header, error) {
	if n < 0 || n+riffOverhead > math.MaxUint32 {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, n)
	}
	h.DataChunkSize = uint32(n)
	h.RiffChunkSize = uint32(n + riffOverhead)
	return h, nil
}

// Format returns the PCM format described by h.
func (h Header) Format() pcm.Format {
	return pcm.Format{
		SampleRate: int(h.SampleRate),
		Channels:   int(h.Channels),
		Depth:      int(h.BitsPerSample),
	}
}

// PayloadLimit returns the declared payload size, or -1 when the header was
// written by a streaming recorder that left the size as 0 or 0xFFFFFFFF.
func (h Header) PayloadLimit() int64 {
	if h.DataChunkSize == 0 || h.DataChunkSize == math.MaxUint32 {
		return -1
	}
	return int64(h.DataChunkSize)
}

// Bytes encodes h into a new HeaderSize byte slice.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], h.RiffChunkSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(b[20:22], h.AudioFormat)
	binary.LittleEndian.PutUint16(b[22:24], h.Channels)
	binary.LittleEndian.PutUint32(b[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(b[28:32], h.ByteRate)
	binary.LittleEndian.PutUint16(b[32:34], h.BlockAlign)
	binary.LittleEndian.PutUint16(b[34:36], h.BitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], h.DataChunkSize)
	return b
}

// WriteTo writes the encoded header to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.Bytes())
	return int64(n), err
}
