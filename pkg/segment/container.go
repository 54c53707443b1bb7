package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/haivivi/audioseg/pkg/audio/codec/opus"
	"github.com/haivivi/audioseg/pkg/audio/ogg"
	"github.com/haivivi/audioseg/pkg/storage"
)

// Track describes one elementary stream of a container.
type Track struct {
	Index      int
	Serial     uint32
	Codec      string
	Timescale  int // timestamp units per second
	Channels   int
	SampleRate int

	// Config holds the codec headers a decoder needs before the first
	// sample (OpusHead and OpusTags for Opus).
	Config [][]byte
}

// Sample is one encoded access unit. Timestamp and Duration are in track
// timescale units.
type Sample struct {
	Data      []byte
	Timestamp int64
	Duration  int64
	Sync      bool
}

// Demuxer reads samples from a container.
type Demuxer interface {
	Tracks() []Track

	// SeekSync selects a track and positions the demuxer at the last sync
	// sample whose timestamp is at or before ts.
	SeekSync(track int, ts int64) error

	// ReadSample returns io.EOF after the last sample of the track.
	ReadSample() (Sample, error)
}

// Muxer writes samples of a single track into a new container.
type Muxer interface {
	WriteSample(Sample) error
	Close() error
}

// MuxerFunc opens a Muxer for a track.
type MuxerFunc func(Track) (Muxer, error)

// SliceInfo reports what ExtractSlice wrote.
type SliceInfo struct {
	Samples int
	Bytes   int64

	// SyncTimestamp is the original timestamp the demuxer was rewound to.
	SyncTimestamp int64
	// FirstTimestamp and LastTimestamp are original timestamps of the
	// first and last samples written.
	FirstTimestamp int64
	LastTimestamp  int64

	// Duration is the end of the last sample relative to the slice start.
	Duration time.Duration
}

func (t Track) validate() error {
	switch {
	case t.Timescale <= 0:
		return fmt.Errorf("%w: track %d has no timescale", ErrContainerWrite, t.Index)
	case t.Channels <= 0:
		return fmt.Errorf("%w: track %d has no channel count", ErrContainerWrite, t.Index)
	case len(t.Config) == 0:
		return fmt.Errorf("%w: track %d has no codec configuration", ErrContainerWrite, t.Index)
	}
	return nil
}

// ticks converts d to the track timescale, rounding to the nearest tick.
// The split into whole seconds keeps long recordings from overflowing.
func (t Track) ticks(d time.Duration) int64 {
	scale := int64(t.Timescale)
	sec, rem := int64(d/time.Second), int64(d%time.Second)
	return sec*scale + (rem*scale+int64(time.Second)/2)/int64(time.Second)
}

// midStream returns t as seen by a slice that begins after the start of
// the stream. Rebased timestamps start at zero there, so the Opus pre-skip
// of the source no longer applies and is cleared.
func (t Track) midStream() Track {
	if t.Codec != ogg.CodecOpus || len(t.Config) == 0 {
		return t
	}
	head, err := opus.ParseHead(t.Config[0])
	if err != nil || head.PreSkip == 0 {
		return t
	}
	head.PreSkip = 0
	t.Config = slices.Clone(t.Config)
	t.Config[0] = head.Bytes()
	return t
}

func (t Track) duration(ticks int64) time.Duration {
	scale := int64(t.Timescale)
	sec, rem := ticks/scale, ticks%scale
	return time.Duration(sec)*time.Second + time.Duration(rem*int64(time.Second)/scale)
}

// ExtractSlice copies the samples of track in [start, start+dur) from d to a
// new single-track container opened with newMuxer.
//
// The demuxer is rewound to the last sync sample at or before start, so
// decoding can begin there. Samples before start are read but not written.
// Written timestamps are rebased so that start maps to zero, and reading
// stops at the first sample at or past start+dur.
//
// On failure the muxer is aborted when it implements storage.Aborter and
// closed otherwise.
func ExtractSlice(ctx context.Context, d Demuxer, track int, start, dur time.Duration, newMuxer MuxerFunc) (SliceInfo, error) {
	tracks := d.Tracks()
	if track < 0 || track >= len(tracks) {
		return SliceInfo{}, fmt.Errorf("%w: no track %d", ErrContainerWrite, track)
	}
	t := tracks[track]
	if err := t.validate(); err != nil {
		return SliceInfo{}, err
	}
	startTS := t.ticks(start)
	endTS := t.ticks(start + dur)
	if startTS > 0 {
		t = t.midStream()
	}

	if err := d.SeekSync(track, startTS); err != nil {
		return SliceInfo{}, readErr(err)
	}
	m, err := newMuxer(t)
	if err != nil {
		return SliceInfo{}, fmt.Errorf("%w: open: %w", ErrContainerWrite, err)
	}

	info := SliceInfo{SyncTimestamp: -1}
	fail := func(err error) (SliceInfo, error) {
		if a, ok := m.(storage.Aborter); ok {
			a.Abort()
		} else {
			m.Close()
		}
		return SliceInfo{}, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return fail(cancelled(err))
		}
		s, err := d.ReadSample()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(readErr(err))
		}
		if info.SyncTimestamp < 0 {
			info.SyncTimestamp = s.Timestamp
		}
		if s.Timestamp >= endTS {
			break
		}
		if s.Timestamp < startTS {
			continue
		}
		if info.Samples == 0 {
			info.FirstTimestamp = s.Timestamp
		}
		info.LastTimestamp = s.Timestamp
		rebased := s
		rebased.Timestamp = s.Timestamp - startTS
		if err := m.WriteSample(rebased); err != nil {
			return fail(err)
		}
		info.Samples++
		info.Bytes += int64(len(s.Data))
		info.Duration = t.duration(rebased.Timestamp + s.Duration)
	}
	if err := m.Close(); err != nil {
		return SliceInfo{}, fmt.Errorf("%w: finalize: %w", ErrContainerWrite, err)
	}
	return info, nil
}

// oggDemuxer adapts ogg.Reader to Demuxer. Only Opus streams are exposed
// as tracks.
type oggDemuxer struct {
	r      *ogg.Reader
	tracks []Track
	ends   []int64 // end timestamp per track
	starts []int64 // first timestamp per track
}

// NewOggDemuxer indexes an Ogg Opus source.
func NewOggDemuxer(rs io.ReadSeeker) (Demuxer, error) {
	return newOggDemuxer(rs)
}

func newOggDemuxer(rs io.ReadSeeker) (*oggDemuxer, error) {
	r, err := ogg.NewReader(rs)
	if err != nil {
		if errors.Is(err, ogg.ErrInvalidPage) || errors.Is(err, ogg.ErrChecksum) || errors.Is(err, opus.ErrInvalidHead) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedContainer, err)
		}
		return nil, readErr(err)
	}
	d := &oggDemuxer{r: r}
	var codecs []string
	for _, s := range r.Streams() {
		if s.Codec != ogg.CodecOpus {
			codecs = append(codecs, s.Codec)
			continue
		}
		d.tracks = append(d.tracks, Track{
			Index:      len(d.tracks),
			Serial:     s.Serial,
			Codec:      s.Codec,
			Timescale:  opus.SampleRate,
			Channels:   int(s.Head.Channels),
			SampleRate: int(s.Head.InputSampleRate),
			Config:     s.Headers,
		})
		d.starts = append(d.starts, 0)
		d.ends = append(d.ends, s.Duration)
	}
	if len(d.tracks) == 0 {
		return nil, fmt.Errorf("%w: no opus stream in ogg (found %v)", ErrUnsupportedContainer, codecs)
	}
	for i, t := range d.tracks {
		if err := r.SeekSync(t.Serial, -1); err != nil {
			return nil, readErr(err)
		}
		p, err := r.ReadPacket()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return nil, readErr(err)
		}
		d.starts[i] = p.Timestamp
		d.ends[i] += p.Timestamp
	}
	return d, nil
}

func (d *oggDemuxer) Tracks() []Track { return d.tracks }

// span returns the first timestamp and end timestamp of a track.
func (d *oggDemuxer) span(track int) (int64, int64) {
	return d.starts[track], d.ends[track]
}

func (d *oggDemuxer) SeekSync(track int, ts int64) error {
	if track < 0 || track >= len(d.tracks) {
		return fmt.Errorf("segment: no track %d", track)
	}
	return d.r.SeekSync(d.tracks[track].Serial, ts)
}

func (d *oggDemuxer) ReadSample() (Sample, error) {
	p, err := d.r.ReadPacket()
	if err != nil {
		return Sample{}, err
	}
	return Sample{Data: p.Data, Timestamp: p.Timestamp, Duration: p.Duration, Sync: p.Sync}, nil
}

// oggMuxer writes an Ogg Opus file to a FileStore path.
type oggMuxer struct {
	ctx    context.Context
	store  storage.FileStore
	path   string
	w      io.WriteCloser
	ow     *ogg.Writer
	logger *slog.Logger
}

func newOggMuxer(ctx context.Context, store storage.FileStore, path string, t Track, logger *slog.Logger) (*oggMuxer, error) {
	if t.Codec != ogg.CodecOpus {
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedContainer, t.Codec)
	}
	w, err := store.Write(ctx, path)
	if err != nil {
		return nil, writeErr(path, err)
	}
	ow, err := ogg.NewWriter(w, t.Config)
	if err != nil {
		storage.Discard(ctx, store, path, w)
		return nil, err
	}
	return &oggMuxer{ctx: ctx, store: store, path: path, w: w, ow: ow, logger: logger}, nil
}

// OggMuxer returns a MuxerFunc that writes an Ogg Opus file to path in
// store. The file becomes visible when the muxer is closed.
func OggMuxer(ctx context.Context, store storage.FileStore, path string) MuxerFunc {
	return func(t Track) (Muxer, error) { return newOggMuxer(ctx, store, path, t, slog.Default()) }
}

func (m *oggMuxer) WriteSample(s Sample) error {
	if err := m.ow.WritePacket(s.Data, s.Timestamp+s.Duration); err != nil {
		return writeErr(m.path, err)
	}
	return nil
}

func (m *oggMuxer) Close() error {
	if err := m.ow.Close(); err != nil {
		storage.Discard(m.ctx, m.store, m.path, m.w)
		return writeErr(m.path, err)
	}
	if err := m.w.Close(); err != nil {
		if derr := m.store.Delete(context.WithoutCancel(m.ctx), m.path); derr != nil {
			m.logger.Warn("cleanup failed", "path", m.path, "error", derr)
		}
		return writeErr(m.path, err)
	}
	return nil
}

func (m *oggMuxer) Abort() error {
	return storage.Discard(context.WithoutCancel(m.ctx), m.store, m.path, m.w)
}

var (
	_ Demuxer         = (*oggDemuxer)(nil)
	_ Muxer           = (*oggMuxer)(nil)
	_ storage.Aborter = (*oggMuxer)(nil)
)

// SplitContainer cuts the first Opus track of an Ogg source into
// consecutive slices of the segment duration, written as
// {base}_part{i}.opus. A final slice shorter than the minimum duration is
// dropped.
func (s *Segmenter) SplitContainer(ctx context.Context, rs io.ReadSeeker, baseName string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	d, err := newOggDemuxer(rs)
	if err != nil {
		return nil, err
	}
	t := d.tracks[0]
	first, end := d.span(0)
	segTicks := t.ticks(s.segment)
	minTicks := t.ticks(s.minSegment())
	log := s.logger.With("base", baseName, "kind", Encoded.String(), "codec", t.Codec)
	log.Debug("container indexed", "tracks", len(d.tracks), "start", first, "end", end, "timescale", t.Timescale)

	var results []Result
	for i, ts := 0, first; ts < end; i, ts = i+1, ts+segTicks {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, results, cancelled(err))
		}
		remaining := end - ts
		if remaining < minTicks {
			log.Debug("dropping short remainder", "index", i, "duration", t.duration(remaining))
			break
		}
		path := s.path(baseName, i, Encoded)
		mux := func(tr Track) (Muxer, error) { return newOggMuxer(ctx, s.store, path, tr, log) }
		info, err := ExtractSlice(ctx, d, 0, t.duration(ts), s.segment, mux)
		if err != nil {
			return s.fail(ctx, results, err)
		}
		r := Result{Index: i, Bytes: info.Bytes, Duration: info.Duration, Path: path}
		results = append(results, r)
		log.Info("segment written", "index", i, "path", path, "bytes", r.Bytes, "duration", r.Duration,
			"sync_ts", info.SyncTimestamp, "first_ts", info.FirstTimestamp)
	}
	return results, nil
}

// splitEncoded handles an Encoded source found by Probe.
func (s *Segmenter) splitEncoded(ctx context.Context, src io.Reader, desc Descriptor, baseName string) ([]Result, error) {
	if desc.Codec != ogg.CodecOpus {
		return nil, fmt.Errorf("%w: codec %s", ErrUnsupportedContainer, desc.Codec)
	}
	rs, ok := src.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("%w: ogg source must be seekable", ErrUnsupportedContainer)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, readErr(err)
	}
	return s.SplitContainer(ctx, rs, baseName)
}
