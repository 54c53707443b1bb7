package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headMagic = "OpusHead"
	tagsMagic = "OpusTags"

	headSize = 19
)

// ErrInvalidHead is returned when an identification header is malformed.
var ErrInvalidHead = errors.New("opus: invalid OpusHead")

// Head is the identification header, the first packet of an Ogg Opus
// stream.
//
// https://datatracker.ietf.org/doc/html/rfc7845#section-5.1
type Head struct {
	Version         uint8
	Channels        uint8
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   uint8
	// Mapping holds the channel mapping table that follows when
	// MappingFamily is not 0.
	Mapping []byte
}

// IsHead reports whether b starts with the OpusHead magic.
func IsHead(b []byte) bool { return bytes.HasPrefix(b, []byte(headMagic)) }

// IsTags reports whether b starts with the OpusTags magic.
func IsTags(b []byte) bool { return bytes.HasPrefix(b, []byte(tagsMagic)) }

// ParseHead decodes an identification header packet.
func ParseHead(b []byte) (Head, error) {
	if !IsHead(b) {
		return Head{}, fmt.Errorf("%w: missing magic", ErrInvalidHead)
	}
	if len(b) < headSize {
		return Head{}, fmt.Errorf("%w: %d bytes", ErrInvalidHead, len(b))
	}
	h := Head{
		Version:         b[8],
		Channels:        b[9],
		PreSkip:         binary.LittleEndian.Uint16(b[10:12]),
		InputSampleRate: binary.LittleEndian.Uint32(b[12:16]),
		OutputGain:      int16(binary.LittleEndian.Uint16(b[16:18])),
		MappingFamily:   b[18],
	}
	if h.Version>>4 != 0 {
		return Head{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidHead, h.Version)
	}
	if h.Channels == 0 {
		return Head{}, fmt.Errorf("%w: zero channels", ErrInvalidHead)
	}
	if h.MappingFamily != 0 {
		h.Mapping = append([]byte(nil), b[headSize:]...)
	}
	return h, nil
}

// Bytes encodes the header.
func (h Head) Bytes() []byte {
	b := make([]byte, headSize, headSize+len(h.Mapping))
	copy(b, headMagic)
	b[8] = h.Version
	b[9] = h.Channels
	binary.LittleEndian.PutUint16(b[10:12], h.PreSkip)
	binary.LittleEndian.PutUint32(b[12:16], h.InputSampleRate)
	binary.LittleEndian.PutUint16(b[16:18], uint16(h.OutputGain))
	b[18] = h.MappingFamily
	if h.MappingFamily != 0 {
		b = append(b, h.Mapping...)
	}
	return b
}

// Tags encodes a comment header with the given vendor string and
// "KEY=value" comments.
//
// https://datatracker.ietf.org/doc/html/rfc7845#section-5.2
func Tags(vendor string, comments ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(tagsMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(len(vendor)))
	buf.WriteString(vendor)
	binary.Write(&buf, binary.LittleEndian, uint32(len(comments)))
	for _, c := range comments {
		binary.Write(&buf, binary.LittleEndian, uint32(len(c)))
		buf.WriteString(c)
	}
	return buf.Bytes()
}
