// Package ogg reads and writes Ogg Opus streams at the packet level.
//
// The Reader indexes every page of a seekable source so that packets can be
// addressed by timestamp; the Writer encapsulates Opus packets one per page.
//
// https://www.rfc-editor.org/rfc/rfc3533 (Ogg framing)
// https://www.rfc-editor.org/rfc/rfc7845 (Opus mapping)
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	capturePattern = "OggS"
	pageHeaderSize = 27

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04

	maxSegments = 255
)

var (
	// ErrInvalidPage is returned for pages with a bad capture pattern or
	// version.
	ErrInvalidPage = errors.New("ogg: invalid page")

	// ErrChecksum is returned when a page CRC does not match its content.
	ErrChecksum = errors.New("ogg: checksum mismatch")
)

// Page is one Ogg page.
type Page struct {
	Flags    byte
	Granule  int64 // -1 when no packet finishes on this page
	Serial   uint32
	Sequence uint32
	Lacing   []byte
	Body     []byte
}

// Continued reports whether the first segment continues a packet from the
// previous page.
func (p *Page) Continued() bool { return p.Flags&flagContinued != 0 }

// BOS reports whether this is the first page of a logical stream.
func (p *Page) BOS() bool { return p.Flags&flagBOS != 0 }

// EOS reports whether this is the last page of a logical stream.
func (p *Page) EOS() bool { return p.Flags&flagEOS != 0 }

// Size returns the encoded size of the page in bytes.
func (p *Page) Size() int64 {
	return int64(pageHeaderSize + len(p.Lacing) + len(p.Body))
}

// ReadPage reads and verifies the next page from r.
//
// It returns io.EOF if r is exhausted at a page boundary, and
// io.ErrUnexpectedEOF if it ends inside a page.
func ReadPage(r io.Reader) (*Page, error) {
	var hdr [pageHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != capturePattern {
		return nil, fmt.Errorf("%w: capture pattern %q", ErrInvalidPage, hdr[0:4])
	}
	if hdr[4] != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidPage, hdr[4])
	}
	p := &Page{
		Flags:    hdr[5],
		Granule:  int64(binary.LittleEndian.Uint64(hdr[6:14])),
		Serial:   binary.LittleEndian.Uint32(hdr[14:18]),
		Sequence: binary.LittleEndian.Uint32(hdr[18:22]),
		Lacing:   make([]byte, hdr[26]),
	}
	if _, err := io.ReadFull(r, p.Lacing); err != nil {
		return nil, noEOF(err)
	}
	n := 0
	for _, l := range p.Lacing {
		n += int(l)
	}
	p.Body = make([]byte, n)
	if _, err := io.ReadFull(r, p.Body); err != nil {
		return nil, noEOF(err)
	}

	want := binary.LittleEndian.Uint32(hdr[22:26])
	clear(hdr[22:26])
	crc := crcUpdate(0, hdr[:])
	crc = crcUpdate(crc, p.Lacing)
	crc = crcUpdate(crc, p.Body)
	if crc != want {
		return nil, fmt.Errorf("%w: page %d of stream %08x", ErrChecksum, p.Sequence, p.Serial)
	}
	return p, nil
}

// Bytes encodes the page and fills in its checksum.
func (p *Page) Bytes() []byte {
	b := make([]byte, pageHeaderSize, p.Size())
	copy(b, capturePattern)
	b[5] = p.Flags
	binary.LittleEndian.PutUint64(b[6:14], uint64(p.Granule))
	binary.LittleEndian.PutUint32(b[14:18], p.Serial)
	binary.LittleEndian.PutUint32(b[18:22], p.Sequence)
	b[26] = byte(len(p.Lacing))
	b = append(b, p.Lacing...)
	b = append(b, p.Body...)
	binary.LittleEndian.PutUint32(b[22:26], crcUpdate(0, b))
	return b
}

// lace returns the lacing values for a packet of n bytes. A packet whose
// length is a multiple of 255 ends with a zero lacing value.
func lace(n int) []byte {
	l := make([]byte, 0, n/255+1)
	for ; n >= 255; n -= 255 {
		l = append(l, 255)
	}
	return append(l, byte(n))
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
