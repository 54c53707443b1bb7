package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/audio/resampler"
	"github.com/haivivi/audioseg/pkg/audio/wav"
	"github.com/haivivi/audioseg/pkg/storage"
)

// Segmenter splits sources into segments written to a FileStore. A
// Segmenter holds no per-run state and may be shared, but concurrent runs
// must use distinct base names.
type Segmenter struct {
	store       storage.FileStore
	segment     time.Duration
	minViable   time.Duration
	rawFormat   *pcm.Format
	resample    *pcm.Format
	keepPartial bool
	logger      *slog.Logger
	dir         string
}

// New returns a Segmenter writing to store.
func New(store storage.FileStore, opts ...Option) *Segmenter {
	s := &Segmenter{
		store:     store,
		segment:   DefaultSegmentDuration,
		minViable: DefaultMinSegmentDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Segmenter) minSegment() time.Duration {
	return min(max(s.minViable, 0), s.segment)
}

func (s *Segmenter) path(base string, index int, kind SourceKind) string {
	return path.Join(s.dir, fmt.Sprintf("%s_part%d%s", base, index, kind.Ext()))
}

// Split probes src and writes its segments. Results are in source order.
//
// Encoded sources must implement io.ReadSeeker. Raw PCM sources require
// WithRawFormat.
//
// On error no results are returned and the segments already written are
// deleted, unless WithKeepPartial is set.
func (s *Segmenter) Split(ctx context.Context, src io.Reader, baseName string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if s.segment <= 0 {
		return nil, fmt.Errorf("%w: segment duration %v", ErrInvalidFormat, s.segment)
	}
	desc, r, err := Probe(src)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("source probed", "base", baseName, "kind", desc.Kind.String(), "codec", desc.Codec)

	var f pcm.Format
	switch desc.Kind {
	case Encoded:
		return s.splitEncoded(ctx, src, desc, baseName)
	case WAV:
		h, err := wav.ReadHeader(r)
		if err != nil {
			if errors.Is(err, ErrMalformedHeader) {
				return nil, err
			}
			return nil, readErr(err)
		}
		f = h.Format()
		if n := h.PayloadLimit(); n >= 0 {
			r = io.LimitReader(r, n)
		}
	case RawPCM:
		if s.rawFormat == nil {
			return nil, fmt.Errorf("%w: raw PCM source needs an explicit format", ErrInvalidFormat)
		}
		f = *s.rawFormat
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if s.resample != nil && *s.resample != f {
		c, err := resampler.New(r, f, *s.resample)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		s.logger.Debug("resampling", "from", f.String(), "to", s.resample.String())
		r, f = c, c.Format()
	}

	plan, err := PlanFor(f, s.segment, s.minViable)
	if err != nil {
		return nil, err
	}
	return s.splitPCM(ctx, r, desc.Kind, f, plan, baseName)
}

// SplitPCM segments a headerless PCM stream of format f without probing.
// Segments are written as .raw files.
func (s *Segmenter) SplitPCM(ctx context.Context, r io.Reader, f pcm.Format, baseName string) ([]Result, error) {
	plan, err := PlanFor(f, s.segment, s.minViable)
	if err != nil {
		return nil, err
	}
	return s.splitPCM(ctx, r, RawPCM, f, plan, baseName)
}

// state names the phases of a PCM split, for logging.
type state int

const (
	stateReading state = iota
	stateEmitting
	stateDone
	stateFailed
)

func (st state) String() string {
	return [...]string{"reading", "emitting", "done", "failed"}[st]
}

func (s *Segmenter) splitPCM(ctx context.Context, r io.Reader, kind SourceKind, f pcm.Format, plan Plan, baseName string) ([]Result, error) {
	log := s.logger.With("base", baseName, "kind", kind.String(), "format", f.String())
	log.Debug("plan", "target_bytes", plan.TargetBytes, "min_bytes", plan.MinViableBytes, "frame_size", plan.FrameSize)

	var header wav.Header
	if kind == WAV {
		h, err := wav.NewHeader(f, 0)
		if err != nil {
			return nil, err
		}
		header = h
	}

	buf := make([]byte, plan.TargetBytes)
	var results []Result
	st := stateReading
	for index := 0; st != stateDone; index++ {
		if err := ctx.Err(); err != nil {
			log.Debug("state", "state", stateFailed, "index", index)
			return s.fail(ctx, results, cancelled(err))
		}

		n, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF:
			st = stateDone
		case err == io.ErrUnexpectedEOF:
			st = stateDone
		case err != nil:
			log.Debug("state", "state", stateFailed, "index", index)
			return s.fail(ctx, results, readErr(err))
		}
		payload := buf[:f.AlignBytes(int64(n))]
		if len(payload) == 0 {
			break
		}
		if int64(len(payload)) < plan.TargetBytes && int64(len(payload)) < plan.MinViableBytes {
			log.Debug("dropping short remainder", "index", index, "bytes", len(payload), "duration", f.Duration(int64(len(payload))))
			break
		}

		log.Debug("state", "state", stateEmitting, "index", index)
		p := s.path(baseName, index, kind)
		if err := s.write(ctx, p, kind, header, payload); err != nil {
			return s.fail(ctx, results, err)
		}
		res := Result{
			Index:    index,
			Bytes:    int64(len(payload)),
			Duration: f.Duration(int64(len(payload))),
			Path:     p,
		}
		results = append(results, res)
		log.Info("segment written", "index", index, "path", p, "bytes", res.Bytes, "duration", res.Duration)
	}
	log.Debug("state", "state", stateDone, "segments", len(results))
	return results, nil
}

// write stores one segment. A partially written file is discarded.
func (s *Segmenter) write(ctx context.Context, p string, kind SourceKind, header wav.Header, payload []byte) error {
	w, err := s.store.Write(ctx, p)
	if err != nil {
		return writeErr(p, err)
	}
	if kind == WAV {
		h, err := header.ForPayload(int64(len(payload)))
		if err != nil {
			storage.Discard(context.WithoutCancel(ctx), s.store, p, w)
			return err
		}
		if _, err := h.WriteTo(w); err != nil {
			storage.Discard(context.WithoutCancel(ctx), s.store, p, w)
			return writeErr(p, err)
		}
	}
	if _, err := w.Write(payload); err != nil {
		storage.Discard(context.WithoutCancel(ctx), s.store, p, w)
		return writeErr(p, err)
	}
	if err := w.Close(); err != nil {
		s.remove(ctx, p)
		return writeErr(p, err)
	}
	return nil
}

// remove deletes p after a failure. A file that cannot be deleted is
// logged and left behind.
func (s *Segmenter) remove(ctx context.Context, p string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), p); err != nil {
		s.logger.Warn("cleanup failed", "path", p, "error", err)
	}
}

// fail applies the failure policy: remove what was written, or keep it and
// report it through PartialError.
func (s *Segmenter) fail(ctx context.Context, results []Result, err error) ([]Result, error) {
	if s.keepPartial {
		return nil, &PartialError{Results: results, Err: err}
	}
	for _, r := range results {
		s.remove(ctx, r.Path)
	}
	return nil, err
}
