// Package storage defines the FileStore interface that segment outputs are
// written through. Backends are local disk, S3-compatible object stores, and
// an in-memory store for tests.
//
// Writers returned by a FileStore only publish a file when closed. A writer
// that also implements [Aborter] can be discarded without leaving a partial
// file behind; use [Discard] to get that behavior on any backend.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing. The file replaces any
	// existing one when the writer is closed.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Aborter is implemented by writers that can drop everything written so
// far instead of publishing it.
type Aborter interface {
	Abort() error
}

// Discard abandons w, which was opened on fs for name. Writers implementing
// Aborter are aborted; others are closed and the file is deleted.
func Discard(ctx context.Context, fs FileStore, name string, w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	cerr := w.Close()
	derr := fs.Delete(ctx, name)
	return errors.Join(cerr, derr)
}

// ContentType returns the media type for a segment file name.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".wav":
		return "audio/wav"
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
