// Package manifest records split jobs and the segments they produced in a
// kv.Store, so that segments can be listed, transcribed, or cleaned up
// after the process that created them has exited.
//
// Layout:
//
//	jobs:<id>                 msgpack Job
//	segments:<id>:<index>     msgpack Segment, index zero-padded to 6 digits
package manifest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/kv"
	"github.com/haivivi/audioseg/pkg/segment"
	"github.com/haivivi/audioseg/pkg/storage"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("manifest: job not found")

// Job describes one split run.
type Job struct {
	ID        string     `msgpack:"id" json:"id" yaml:"id"`
	Source    string     `msgpack:"source" json:"source" yaml:"source"`
	BaseName  string     `msgpack:"base_name" json:"base_name" yaml:"base_name"`
	Kind      string     `msgpack:"kind" json:"kind" yaml:"kind"`
	Codec     string     `msgpack:"codec,omitempty" json:"codec,omitempty" yaml:"codec,omitempty"`
	Format    pcm.Format `msgpack:"format" json:"format" yaml:"format"`
	SegmentMs int64      `msgpack:"segment_ms" json:"segment_ms" yaml:"segment_ms"`
	MinMs     int64      `msgpack:"min_segment_ms" json:"min_segment_ms" yaml:"min_segment_ms"`
	Segments  int        `msgpack:"segments" json:"segments" yaml:"segments"`
	Bytes     int64      `msgpack:"bytes" json:"bytes" yaml:"bytes"`
	CreatedAt time.Time  `msgpack:"created_at" json:"created_at" yaml:"created_at"`
}

// Segment is one emitted segment file.
type Segment struct {
	Index      int    `msgpack:"index" json:"index" yaml:"index"`
	Path       string `msgpack:"path" json:"path" yaml:"path"`
	Bytes      int64  `msgpack:"bytes" json:"bytes" yaml:"bytes"`
	DurationMs int64  `msgpack:"duration_ms" json:"duration_ms" yaml:"duration_ms"`

	// Transcript is filled in by a later transcription pass.
	Transcript string `msgpack:"transcript,omitempty" json:"transcript,omitempty" yaml:"transcript,omitempty"`
}

// Manifest reads and writes job records.
type Manifest struct {
	store kv.Store
	now   func() time.Time
}

// FromResults converts segmenter results to manifest segments.
func FromResults(results []segment.Result) []Segment {
	segs := make([]Segment, len(results))
	for i, r := range results {
		segs[i] = Segment{Index: r.Index, Path: r.Path, Bytes: r.Bytes, DurationMs: r.Duration.Milliseconds()}
	}
	return segs
}

// Results converts manifest segments back to segmenter results.
func Results(segs []Segment) []segment.Result {
	out := make([]segment.Result, len(segs))
	for i, s := range segs {
		out[i] = segment.Result{Index: s.Index, Path: s.Path, Bytes: s.Bytes, Duration: time.Duration(s.DurationMs) * time.Millisecond}
	}
	return out
}

// New returns a Manifest over store.
func New(store kv.Store) *Manifest {
	return &Manifest{store: store, now: time.Now}
}

func jobKey(id string) kv.Key { return kv.Key{"jobs", id} }

func segmentKey(id string, index int) kv.Key {
	return kv.Key{"segments", id, fmt.Sprintf("%06d", index)}
}

// Record stores job and its segments in one batch. A new ID is assigned
// when job.ID is empty, and CreatedAt is set when zero. The stored job is
// returned.
func (m *Manifest) Record(ctx context.Context, job Job, segs []Segment) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = m.now().UTC()
	}
	job.Segments = len(segs)
	job.Bytes = 0
	for _, s := range segs {
		job.Bytes += s.Bytes
	}

	entries := make([]kv.Entry, 0, len(segs)+1)
	b, err := msgpack.Marshal(&job)
	if err != nil {
		return Job{}, fmt.Errorf("manifest: encode job: %w", err)
	}
	entries = append(entries, kv.Entry{Key: jobKey(job.ID), Value: b})
	for _, s := range segs {
		b, err := msgpack.Marshal(&s)
		if err != nil {
			return Job{}, fmt.Errorf("manifest: encode segment %d: %w", s.Index, err)
		}
		entries = append(entries, kv.Entry{Key: segmentKey(job.ID, s.Index), Value: b})
	}
	if err := m.store.BatchSet(ctx, entries); err != nil {
		return Job{}, fmt.Errorf("manifest: record %s: %w", job.ID, err)
	}
	return job, nil
}

// Get returns a job and its segments in index order.
func (m *Manifest) Get(ctx context.Context, id string) (Job, []Segment, error) {
	b, err := m.store.Get(ctx, jobKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Job{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Job{}, nil, err
	}
	var job Job
	if err := msgpack.Unmarshal(b, &job); err != nil {
		return Job{}, nil, fmt.Errorf("manifest: decode job %s: %w", id, err)
	}
	segs, err := m.segments(ctx, id)
	if err != nil {
		return Job{}, nil, err
	}
	return job, segs, nil
}

func (m *Manifest) segments(ctx context.Context, id string) ([]Segment, error) {
	var segs []Segment
	for e, err := range m.store.List(ctx, kv.Key{"segments", id}) {
		if err != nil {
			return nil, err
		}
		var s Segment
		if err := msgpack.Unmarshal(e.Value, &s); err != nil {
			return nil, fmt.Errorf("manifest: decode %s: %w", e.Key, err)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

// List returns all jobs, newest first.
func (m *Manifest) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	for e, err := range m.store.List(ctx, kv.Key{"jobs"}) {
		if err != nil {
			return nil, err
		}
		var job Job
		if err := msgpack.Unmarshal(e.Value, &job); err != nil {
			return nil, fmt.Errorf("manifest: decode %s: %w", e.Key, err)
		}
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return jobs, nil
}

// SetTranscript stores the transcript of one segment.
func (m *Manifest) SetTranscript(ctx context.Context, id string, index int, text string) error {
	key := segmentKey(id, index)
	b, err := m.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("%w: %s segment %d", ErrNotFound, id, index)
	}
	if err != nil {
		return err
	}
	var s Segment
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("manifest: decode %s: %w", key, err)
	}
	s.Transcript = text
	if b, err = msgpack.Marshal(&s); err != nil {
		return err
	}
	return m.store.Set(ctx, key, b)
}

// Delete removes a job record. When files is not nil the segment files are
// deleted from it first.
func (m *Manifest) Delete(ctx context.Context, id string, files storage.FileStore) error {
	if _, err := m.store.Get(ctx, jobKey(id)); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	segs, err := m.segments(ctx, id)
	if err != nil {
		return err
	}
	keys := []kv.Key{jobKey(id)}
	for _, s := range segs {
		if files != nil {
			if err := files.Delete(ctx, s.Path); err != nil {
				return fmt.Errorf("manifest: delete %s: %w", s.Path, err)
			}
		}
		keys = append(keys, segmentKey(id, s.Index))
	}
	return m.store.BatchDelete(ctx, keys)
}
