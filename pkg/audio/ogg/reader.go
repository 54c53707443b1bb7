package ogg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/haivivi/audioseg/pkg/audio/codec/opus"
)

// Codec names reported in Stream.Codec.
const (
	CodecOpus    = "opus"
	CodecVorbis  = "vorbis"
	CodecFLAC    = "flac"
	CodecUnknown = "unknown"
)

// ErrNoStream is returned when a serial number does not name an Opus stream
// of the source.
var ErrNoStream = errors.New("ogg: no such opus stream")

// Stream describes one logical bitstream.
type Stream struct {
	Serial uint32
	Codec  string

	// Head is the parsed identification header of an Opus stream.
	Head opus.Head

	// Headers are the raw header packets in stream order (OpusHead then
	// OpusTags for Opus).
	Headers [][]byte

	// Packets is the number of audio packets indexed.
	Packets int

	// Duration is the total length of the audio packets in 48 kHz samples.
	Duration int64
}

// Packet is an audio packet with its position in the stream, in 48 kHz
// samples.
type Packet struct {
	Data      []byte
	Timestamp int64
	Duration  int64

	// Sync is true when the packet begins on a fresh page, which makes it
	// a valid place to start reading.
	Sync bool
}

type pageRef struct {
	offset int64
	serial uint32
}

type packetRef struct {
	page int // global page index where the packet starts
	seg  int // lacing index within that page
	ts   int64
	dur  int64
	sync bool
}

type streamIndex struct {
	Stream
	pages   []int
	packets []packetRef

	// scan state
	partial      []byte
	partialStart packetRef
	inPartial    bool
	completed    int64
	originSet    bool
	origin       int64
}

// Reader demultiplexes Opus packets from a seekable Ogg source. It indexes
// all pages on construction and reads packet payloads lazily.
type Reader struct {
	rs      io.ReadSeeker
	pages   []pageRef
	streams []*streamIndex

	cur    *streamIndex
	cursor int

	cachedIdx  int
	cachedPage *Page
}

// NewReader scans rs from the start and builds a page and packet index. A
// truncated final page is ignored.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := &Reader{rs: rs, cachedIdx: -1}
	br := bufio.NewReader(rs)
	var offset int64
	for {
		p, err := ReadPage(br)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ogg: page at offset %d: %w", offset, err)
		}
		idx := len(r.pages)
		r.pages = append(r.pages, pageRef{offset: offset, serial: p.Serial})
		offset += p.Size()
		if err := r.index(idx, p); err != nil {
			return nil, err
		}
	}
	if len(r.pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidPage)
	}
	for _, s := range r.streams {
		s.finish()
		if r.cur == nil && s.Codec == CodecOpus {
			r.cur = s
		}
	}
	return r, nil
}

func (r *Reader) stream(serial uint32) *streamIndex {
	for _, s := range r.streams {
		if s.Serial == serial {
			return s
		}
	}
	return nil
}

func (r *Reader) index(idx int, p *Page) error {
	s := r.stream(p.Serial)
	if s == nil {
		s = &streamIndex{Stream: Stream{Serial: p.Serial, Codec: CodecUnknown}}
		r.streams = append(r.streams, s)
	}
	s.pages = append(s.pages, idx)

	seg, off := 0, 0
	if p.Continued() && !s.inPartial {
		// Tail of a packet whose start was never seen.
		for seg < len(p.Lacing) {
			l := int(p.Lacing[seg])
			seg++
			off += l
			if l < 255 {
				break
			}
		}
	}
	for ; seg < len(p.Lacing); seg++ {
		if !s.inPartial {
			s.inPartial = true
			s.partial = s.partial[:0]
			s.partialStart = packetRef{
				page: idx,
				seg:  seg,
				sync: seg == 0 && !p.Continued(),
			}
		}
		l := int(p.Lacing[seg])
		s.partial = append(s.partial, p.Body[off:off+l]...)
		off += l
		if l == 255 {
			continue
		}
		s.inPartial = false
		if err := s.complete(s.partial); err != nil {
			return err
		}
	}
	if p.Granule >= 0 && !s.originSet && len(s.packets) > 0 {
		s.origin = p.Granule - s.completed
		s.originSet = true
	}
	return nil
}

// complete handles a fully assembled packet during the scan.
func (s *streamIndex) complete(data []byte) error {
	if len(s.Headers) == 0 {
		s.Headers = append(s.Headers, bytes.Clone(data))
		switch {
		case opus.IsHead(data):
			head, err := opus.ParseHead(data)
			if err != nil {
				return fmt.Errorf("ogg: stream %08x: %w", s.Serial, err)
			}
			s.Codec, s.Head = CodecOpus, head
		case bytes.HasPrefix(data, []byte("\x01vorbis")):
			s.Codec = CodecVorbis
		case bytes.HasPrefix(data, []byte("\x7fFLAC")):
			s.Codec = CodecFLAC
		}
		return nil
	}
	if s.Codec != CodecOpus {
		return nil
	}
	if len(s.Headers) == 1 {
		if !opus.IsTags(data) {
			return fmt.Errorf("ogg: stream %08x: second packet is not OpusTags", s.Serial)
		}
		s.Headers = append(s.Headers, bytes.Clone(data))
		return nil
	}
	n, err := opus.Packet(data).Samples()
	if err != nil {
		return fmt.Errorf("ogg: stream %08x packet %d: %w", s.Serial, len(s.packets), err)
	}
	ref := s.partialStart
	ref.ts = s.completed
	ref.dur = int64(n)
	s.packets = append(s.packets, ref)
	s.completed += int64(n)
	return nil
}

// finish shifts packet timestamps by the stream origin derived from the
// first page granule. Streams that start at a negative position are
// clamped to zero.
func (s *streamIndex) finish() {
	s.partial = nil
	if s.origin < 0 {
		s.origin = 0
	}
	for i := range s.packets {
		s.packets[i].ts += s.origin
	}
	s.Packets = len(s.packets)
	s.Duration = s.completed
}

// Streams returns the logical streams of the source in order of first
// appearance.
func (r *Reader) Streams() []Stream {
	out := make([]Stream, len(r.streams))
	for i, s := range r.streams {
		out[i] = s.Stream
	}
	return out
}

// SeekSync selects the Opus stream with the given serial and positions the
// reader at the last sync packet whose timestamp is at or before ts. If ts
// precedes the first packet the reader is positioned at the first packet.
func (r *Reader) SeekSync(serial uint32, ts int64) error {
	s := r.stream(serial)
	if s == nil || s.Codec != CodecOpus {
		return fmt.Errorf("%w: %08x", ErrNoStream, serial)
	}
	r.cur = s
	i := sort.Search(len(s.packets), func(i int) bool { return s.packets[i].ts > ts }) - 1
	for i > 0 && !s.packets[i].sync {
		i--
	}
	r.cursor = max(i, 0)
	return nil
}

// ReadPacket returns the next packet of the selected stream, or io.EOF.
func (r *Reader) ReadPacket() (Packet, error) {
	if r.cur == nil {
		return Packet{}, fmt.Errorf("%w: source has no opus stream", ErrNoStream)
	}
	if r.cursor >= len(r.cur.packets) {
		return Packet{}, io.EOF
	}
	ref := r.cur.packets[r.cursor]
	data, err := r.readData(r.cur, ref)
	if err != nil {
		return Packet{}, err
	}
	r.cursor++
	return Packet{Data: data, Timestamp: ref.ts, Duration: ref.dur, Sync: ref.sync}, nil
}

func (r *Reader) readData(s *streamIndex, ref packetRef) ([]byte, error) {
	pos := sort.SearchInts(s.pages, ref.page)
	seg := ref.seg
	var data []byte
	for ; pos < len(s.pages); pos++ {
		p, err := r.page(s.pages[pos])
		if err != nil {
			return nil, err
		}
		off := 0
		for _, l := range p.Lacing[:seg] {
			off += int(l)
		}
		for ; seg < len(p.Lacing); seg++ {
			l := int(p.Lacing[seg])
			data = append(data, p.Body[off:off+l]...)
			off += l
			if l < 255 {
				return data, nil
			}
		}
		seg = 0
	}
	return nil, io.ErrUnexpectedEOF
}

func (r *Reader) page(idx int) (*Page, error) {
	if idx == r.cachedIdx {
		return r.cachedPage, nil
	}
	if _, err := r.rs.Seek(r.pages[idx].offset, io.SeekStart); err != nil {
		return nil, err
	}
	p, err := ReadPage(r.rs)
	if err != nil {
		return nil, fmt.Errorf("ogg: reread page %d: %w", idx, err)
	}
	r.cachedIdx, r.cachedPage = idx, p
	return p, nil
}
