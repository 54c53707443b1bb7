package ogg

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/haivivi/audioseg/pkg/audio/codec/opus"
)

var (
	// ErrMissingHeaders is returned when a Writer is created without an
	// OpusHead and OpusTags packet.
	ErrMissingHeaders = errors.New("ogg: missing opus headers")

	// ErrPacketTooLarge is returned for packets that do not fit one page.
	ErrPacketTooLarge = errors.New("ogg: packet too large")

	errClosed = errors.New("ogg: writer closed")
)

// maxPacketSize is the largest packet whose lacing fits one page.
const maxPacketSize = maxSegments*255 - 1

// Writer encapsulates Opus packets into an Ogg stream, one packet per page.
// The most recent page is held back until the next write or Close so that
// the final page can carry the end-of-stream flag.
type Writer struct {
	w       io.Writer
	serial  uint32
	seq     uint32
	pending *Page
	closed  bool
}

// NewWriter writes the identification and comment headers to w and returns
// a Writer for the audio packets that follow. headers must hold OpusHead
// and OpusTags, usually copied from a source stream.
func NewWriter(w io.Writer, headers [][]byte) (*Writer, error) {
	if len(headers) < 2 || !opus.IsHead(headers[0]) || !opus.IsTags(headers[1]) {
		return nil, ErrMissingHeaders
	}
	var serial uint32
	if err := binary.Read(rand.Reader, binary.LittleEndian, &serial); err != nil {
		return nil, err
	}
	ow := &Writer{w: w, serial: serial}
	if err := ow.queue(headers[0], 0, flagBOS); err != nil {
		return nil, err
	}
	if err := ow.queue(headers[1], 0, 0); err != nil {
		return nil, err
	}
	return ow, nil
}

// Serial returns the stream serial number.
func (w *Writer) Serial() uint32 { return w.serial }

// WritePacket appends an audio packet. granule is the 48 kHz sample
// position at the end of the packet.
func (w *Writer) WritePacket(data []byte, granule int64) error {
	if w.closed {
		return errClosed
	}
	return w.queue(data, granule, 0)
}

// Close flushes the final page with the end-of-stream flag. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.pending == nil {
		return nil
	}
	w.pending.Flags |= flagEOS
	return w.flush()
}

func (w *Writer) queue(data []byte, granule int64, flags byte) error {
	if len(data) > maxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}
	if err := w.flush(); err != nil {
		return err
	}
	w.pending = &Page{
		Flags:    flags,
		Granule:  granule,
		Serial:   w.serial,
		Sequence: w.seq,
		Lacing:   lace(len(data)),
		Body:     append([]byte(nil), data...),
	}
	w.seq++
	return nil
}

func (w *Writer) flush() error {
	if w.pending == nil {
		return nil
	}
	p := w.pending
	w.pending = nil
	_, err := w.w.Write(p.Bytes())
	return err
}
