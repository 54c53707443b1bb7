package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/haivivi/audioseg/pkg/audio/codec/opus"
	"github.com/haivivi/audioseg/pkg/audio/ogg"
	"github.com/haivivi/audioseg/pkg/storage"
)

// fakeDemuxer serves fixed-duration samples with a sync sample every
// syncEvery samples.
type fakeDemuxer struct {
	track     Track
	samples   []Sample
	pos       int
	seekErr   error
	readErr   error
	readErrAt int
}

func newFakeDemuxer(timescale int, sampleDur int64, n, syncEvery int) *fakeDemuxer {
	d := &fakeDemuxer{
		track:     Track{Codec: "fake", Timescale: timescale, Channels: 1, Config: [][]byte{{1}}},
		readErrAt: -1,
	}
	for i := 0; i < n; i++ {
		d.samples = append(d.samples, Sample{
			Data:      []byte{byte(i), byte(i >> 8)},
			Timestamp: int64(i) * sampleDur,
			Duration:  sampleDur,
			Sync:      i%syncEvery == 0,
		})
	}
	return d
}

func (d *fakeDemuxer) Tracks() []Track { return []Track{d.track} }

func (d *fakeDemuxer) SeekSync(track int, ts int64) error {
	if d.seekErr != nil {
		return d.seekErr
	}
	d.pos = 0
	for i, s := range d.samples {
		if s.Timestamp > ts {
			break
		}
		if s.Sync {
			d.pos = i
		}
	}
	return nil
}

func (d *fakeDemuxer) ReadSample() (Sample, error) {
	if d.pos == d.readErrAt {
		return Sample{}, d.readErr
	}
	if d.pos >= len(d.samples) {
		return Sample{}, io.EOF
	}
	s := d.samples[d.pos]
	d.pos++
	return s, nil
}

type recordingMuxer struct {
	samples  []Sample
	writeErr error
	closeErr error
	closed   bool
	aborted  bool
}

func (m *recordingMuxer) WriteSample(s Sample) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.samples = append(m.samples, s)
	return nil
}

func (m *recordingMuxer) Close() error {
	m.closed = true
	return m.closeErr
}

func (m *recordingMuxer) Abort() error {
	m.aborted = true
	return nil
}

func (m *recordingMuxer) open(Track) (Muxer, error) { return m, nil }

func TestExtractSlice(t *testing.T) {
	// 100 ms samples, a sync sample every 1.6 s.
	d := newFakeDemuxer(1000, 100, 200, 16)
	m := &recordingMuxer{}
	info, err := ExtractSlice(context.Background(), d, 0, 5*time.Second, 3*time.Second, m.open)
	if err != nil {
		t.Fatal(err)
	}
	if info.SyncTimestamp != 4800 {
		t.Errorf("sync timestamp = %d, want 4800", info.SyncTimestamp)
	}
	if info.FirstTimestamp != 5000 || info.LastTimestamp != 7900 {
		t.Errorf("first/last = %d/%d, want 5000/7900", info.FirstTimestamp, info.LastTimestamp)
	}
	if info.Samples != 30 || len(m.samples) != 30 {
		t.Fatalf("samples = %d, recorded %d, want 30", info.Samples, len(m.samples))
	}
	if info.Bytes != 60 {
		t.Errorf("bytes = %d, want 60", info.Bytes)
	}
	if info.Duration != 3*time.Second {
		t.Errorf("duration = %v, want 3s", info.Duration)
	}
	if m.samples[0].Timestamp != 0 {
		t.Errorf("first rebased timestamp = %d, want 0", m.samples[0].Timestamp)
	}
	for i, s := range m.samples {
		if s.Timestamp != int64(i)*100 {
			t.Fatalf("sample %d timestamp = %d", i, s.Timestamp)
		}
	}
	if !m.closed || m.aborted {
		t.Errorf("closed = %v, aborted = %v", m.closed, m.aborted)
	}
}

func TestExtractSlicePastEnd(t *testing.T) {
	d := newFakeDemuxer(1000, 100, 50, 10)
	m := &recordingMuxer{}
	info, err := ExtractSlice(context.Background(), d, 0, 4*time.Second, 3*time.Second, m.open)
	if err != nil {
		t.Fatal(err)
	}
	if info.Samples != 10 || info.LastTimestamp != 4900 {
		t.Errorf("samples = %d last = %d, want 10 and 4900", info.Samples, info.LastTimestamp)
	}
	if info.Duration != time.Second {
		t.Errorf("duration = %v, want 1s", info.Duration)
	}
}

func TestExtractSliceErrors(t *testing.T) {
	errRead := errors.New("read fault")
	errWrite := errors.New("write fault")
	tests := []struct {
		name        string
		setup       func(d *fakeDemuxer, m *recordingMuxer)
		open        func(m *recordingMuxer) MuxerFunc
		wantErr     error
		wantAborted bool
	}{
		{
			name:    "missing config",
			setup:   func(d *fakeDemuxer, _ *recordingMuxer) { d.track.Config = nil },
			wantErr: ErrContainerWrite,
		},
		{
			name:    "missing timescale",
			setup:   func(d *fakeDemuxer, _ *recordingMuxer) { d.track.Timescale = 0 },
			wantErr: ErrContainerWrite,
		},
		{
			name: "open fails",
			open: func(*recordingMuxer) MuxerFunc {
				return func(Track) (Muxer, error) { return nil, errWrite }
			},
			wantErr: ErrContainerWrite,
		},
		{
			name:    "seek fails",
			setup:   func(d *fakeDemuxer, _ *recordingMuxer) { d.seekErr = errRead },
			wantErr: ErrIO,
		},
		{
			name: "read fails",
			setup: func(d *fakeDemuxer, _ *recordingMuxer) {
				d.readErr, d.readErrAt = errRead, 20
			},
			wantErr:     ErrIO,
			wantAborted: true,
		},
		{
			name:        "write fails",
			setup:       func(_ *fakeDemuxer, m *recordingMuxer) { m.writeErr = errWrite },
			wantErr:     errWrite,
			wantAborted: true,
		},
		{
			name:    "finalize fails",
			setup:   func(_ *fakeDemuxer, m *recordingMuxer) { m.closeErr = errWrite },
			wantErr: ErrContainerWrite,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDemuxer(1000, 100, 100, 16)
			m := &recordingMuxer{}
			if tt.setup != nil {
				tt.setup(d, m)
			}
			open := m.open
			if tt.open != nil {
				open = tt.open(m)
			}
			_, err := ExtractSlice(context.Background(), d, 0, time.Second, 3*time.Second, open)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if m.aborted != tt.wantAborted {
				t.Errorf("aborted = %v, want %v", m.aborted, tt.wantAborted)
			}
		})
	}
}

func TestExtractSliceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &recordingMuxer{}
	_, err := ExtractSlice(ctx, newFakeDemuxer(1000, 100, 100, 16), 0, 0, time.Second, m.open)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !m.aborted {
		t.Error("muxer not aborted")
	}
}

func TestExtractSliceNoTrack(t *testing.T) {
	m := &recordingMuxer{}
	_, err := ExtractSlice(context.Background(), newFakeDemuxer(1000, 100, 10, 1), 3, 0, time.Second, m.open)
	if !errors.Is(err, ErrContainerWrite) {
		t.Fatalf("err = %v", err)
	}
}

func TestTrackTicks(t *testing.T) {
	tr := Track{Timescale: 48000}
	for _, d := range []time.Duration{0, 20 * time.Millisecond, 10 * time.Second, 3*time.Hour + 7*time.Millisecond} {
		ticks := tr.ticks(d)
		if got := tr.duration(ticks); got != d {
			t.Errorf("round trip of %v = %v (ticks %d)", d, got, ticks)
		}
	}
	if got := tr.ticks(10 * time.Second); got != 480000 {
		t.Errorf("ticks(10s) = %d", got)
	}
}

// celt20ms is a CELT fullband 20 ms Opus packet.
func celt20ms(tag byte) []byte {
	return []byte{31 << 3, tag, tag, tag}
}

func oggOpus(t *testing.T, packets int) []byte {
	t.Helper()
	head := opus.Head{Version: 1, Channels: 2, PreSkip: 312, InputSampleRate: 44100}
	var buf bytes.Buffer
	w, err := ogg.NewWriter(&buf, [][]byte{head.Bytes(), opus.Tags("segment-test")})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < packets; i++ {
		if err := w.WritePacket(celt20ms(byte(i)), int64(i+1)*960); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSplitContainer(t *testing.T) {
	src := oggOpus(t, 35) // 700 ms
	store := storage.NewMemory()
	s := New(store,
		WithLogger(quiet),
		WithSegmentDuration(200*time.Millisecond),
		WithMinSegmentDuration(150*time.Millisecond),
	)
	results, err := s.Split(context.Background(), bytes.NewReader(src), "song")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d segments, want 3", len(results))
	}
	for i, r := range results {
		if want := fmt.Sprintf("song_part%d.opus", i); r.Path != want {
			t.Errorf("path = %q, want %q", r.Path, want)
		}
		if r.Duration != 200*time.Millisecond || r.Bytes != 40 {
			t.Errorf("segment %d: %v, %d bytes", i, r.Duration, r.Bytes)
		}

		or, err := ogg.NewReader(bytes.NewReader(store.Bytes(r.Path)))
		if err != nil {
			t.Fatalf("segment %d: %v", i, err)
		}
		streams := or.Streams()
		if len(streams) != 1 || streams[0].Codec != ogg.CodecOpus {
			t.Fatalf("segment %d streams = %+v", i, streams)
		}
		st := streams[0]
		wantPreSkip := uint16(312)
		if i > 0 {
			wantPreSkip = 0
		}
		if st.Head.Channels != 2 || st.Head.PreSkip != wantPreSkip || st.Head.InputSampleRate != 44100 {
			t.Errorf("segment %d head = %+v, want pre-skip %d", i, st.Head, wantPreSkip)
		}
		if st.Packets != 10 || st.Duration != 9600 {
			t.Errorf("segment %d has %d packets over %d samples", i, st.Packets, st.Duration)
		}
		if err := or.SeekSync(st.Serial, 0); err != nil {
			t.Fatal(err)
		}
		p, err := or.ReadPacket()
		if err != nil {
			t.Fatal(err)
		}
		if p.Timestamp != 0 || p.Data[1] != byte(i*10) {
			t.Errorf("segment %d first packet ts %d tag %d", i, p.Timestamp, p.Data[1])
		}
	}
}

func TestExtractSlicePreSkip(t *testing.T) {
	tests := []struct {
		name        string
		start       time.Duration
		wantPreSkip uint16
	}{
		{"stream start", 0, 312},
		{"mid stream", 100 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewOggDemuxer(bytes.NewReader(oggOpus(t, 20)))
			if err != nil {
				t.Fatal(err)
			}
			store := storage.NewMemory()
			ctx := context.Background()
			info, err := ExtractSlice(ctx, d, 0, tt.start, 200*time.Millisecond, OggMuxer(ctx, store, "out.opus"))
			if err != nil {
				t.Fatal(err)
			}
			or, err := ogg.NewReader(bytes.NewReader(store.Bytes("out.opus")))
			if err != nil {
				t.Fatal(err)
			}
			st := or.Streams()[0]
			if st.Head.PreSkip != tt.wantPreSkip {
				t.Errorf("pre-skip = %d, want %d", st.Head.PreSkip, tt.wantPreSkip)
			}
			if st.Duration != 9600 || info.Duration != 200*time.Millisecond {
				t.Errorf("duration = %d samples, info %v", st.Duration, info.Duration)
			}
			if head, _ := opus.ParseHead(d.Tracks()[0].Config[0]); head.PreSkip != 312 {
				t.Errorf("source track pre-skip changed to %d", head.PreSkip)
			}
		})
	}
}

func TestSplitContainerKeepsMinimumRemainder(t *testing.T) {
	store := storage.NewMemory()
	s := New(store,
		WithLogger(quiet),
		WithSegmentDuration(200*time.Millisecond),
		WithMinSegmentDuration(100*time.Millisecond),
	)
	results, err := s.SplitContainer(context.Background(), bytes.NewReader(oggOpus(t, 35)), "song")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 || results[3].Duration != 100*time.Millisecond {
		t.Fatalf("results = %+v", results)
	}
}

func TestSplitEncodedErrors(t *testing.T) {
	vorbis := func() []byte {
		p := &ogg.Page{Flags: 0x02, Serial: 7, Lacing: []byte{30}, Body: append([]byte("\x01vorbis"), make([]byte, 23)...)}
		return p.Bytes()
	}()
	tests := []struct {
		name string
		src  io.Reader
	}{
		{"vorbis", bytes.NewReader(vorbis)},
		{"mp4", bytes.NewReader(append([]byte("\x00\x00\x00\x18ftypisom"), make([]byte, 64)...))},
		{"not seekable", io.MultiReader(bytes.NewReader(oggOpus(t, 5)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			_, err := New(store, WithLogger(quiet)).Split(context.Background(), tt.src, "x")
			if !errors.Is(err, ErrUnsupportedContainer) {
				t.Fatalf("err = %v, want ErrUnsupportedContainer", err)
			}
			if p := store.Paths(""); len(p) != 0 {
				t.Errorf("store holds %v", p)
			}
		})
	}
}
