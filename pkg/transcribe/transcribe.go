// Package transcribe sends audio segments to speech-to-text services.
//
// Backends implement [Transcriber]. [TranscribeAll] feeds the segments of a
// split to a backend one at a time, in index order.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/haivivi/audioseg/pkg/segment"
	"github.com/haivivi/audioseg/pkg/storage"
)

var (
	// ErrEmptyAudio is returned for a zero-length segment.
	ErrEmptyAudio = errors.New("transcribe: empty audio")

	// ErrNoText is returned when a backend answers without a transcript.
	ErrNoText = errors.New("transcribe: no text in response")
)

// Transcriber converts one audio file to text. name is the file name the
// audio is uploaded under; its extension tells the service the container.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio []byte) (string, error)
}

// Transcript is the text of one segment.
type Transcript struct {
	Index    int           `json:"index" yaml:"index"`
	Path     string        `json:"path" yaml:"path"`
	Text     string        `json:"text" yaml:"text"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// TranscribeAll transcribes results in index order, reading each segment
// from store. It stops at the first failure and returns the transcripts
// completed before it. onDone, when not nil, is called after each segment.
func TranscribeAll(ctx context.Context, t Transcriber, store storage.FileStore, results []segment.Result, onDone func(Transcript) error) ([]Transcript, error) {
	var out []Transcript
	for i, r := range results {
		if r.Index != i {
			return out, fmt.Errorf("transcribe: segment %d out of order at position %d", r.Index, i)
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		audio, err := readAll(ctx, store, r.Path)
		if err != nil {
			return out, fmt.Errorf("transcribe: segment %d: %w", r.Index, err)
		}
		start := time.Now()
		text, err := t.Transcribe(ctx, path.Base(r.Path), audio)
		if err != nil {
			return out, fmt.Errorf("transcribe: segment %d: %w", r.Index, err)
		}
		slog.Debug("segment transcribed", "index", r.Index, "path", r.Path, "chars", len(text), "took", time.Since(start))
		tr := Transcript{Index: r.Index, Path: r.Path, Text: text, Duration: r.Duration}
		out = append(out, tr)
		if onDone != nil {
			if err := onDone(tr); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func readAll(ctx context.Context, store storage.FileStore, p string) ([]byte, error) {
	rc, err := store.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrEmptyAudio
	}
	return b, nil
}
