package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	const data = "hello, storage"
	w, err := s.Write(ctx, "a/b/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := s.Read(ctx, "a/b/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != data {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestReadNotExist(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	_, err := s.Read(ctx, "no-such-file")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false for missing file")
	}

	w, err := s.Write(ctx, "present")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	ok, err = s.Exists(ctx, "present")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected true for existing file")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	// Delete a file that doesn't exist: should succeed.
	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}

	// Write then delete.
	w, err := s.Write(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Exists(ctx, "tmp")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("file should be gone after delete")
	}

	// Delete again, idempotent.
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
}

func TestWriteTruncates(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	// First write.
	w, err := s.Write(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "long content here")
	w.Close()

	// Overwrite with shorter data.
	w, err = s.Write(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "short")
	w.Close()

	r, err := s.Read(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "short" {
		t.Fatalf("got %q, want %q", got, "short")
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.root)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

func TestWriteVisibleOnlyAfterClose(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	w, err := s.Write(ctx, "seg/a_part0.wav")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "RIFF")
	if ok, _ := s.Exists(ctx, "seg/a_part0.wav"); ok {
		t.Fatal("file visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "seg/a_part0.wav"); !ok {
		t.Fatal("file missing after Close")
	}
}

func TestDiscardLeavesNothing(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	w, err := s.Write(ctx, "seg/b_part0.wav")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "partial")
	if err := Discard(ctx, s, "seg/b_part0.wav", w); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(s.Root(), "seg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory not empty after discard: %v", entries)
	}
	// Close after abort is a no-op.
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "seg/b_part0.wav"); ok {
		t.Fatal("aborted file was published")
	}
}

// plainWriter hides the Aborter implementation of the wrapped writer.
type plainWriter struct{ io.WriteCloser }

func TestDiscardWithoutAborter(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	w, err := s.Write(ctx, "c.raw")
	if err != nil {
		t.Fatal(err)
	}
	if err := Discard(ctx, s, "c.raw", plainWriter{w}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "c.raw"); ok {
		t.Fatal("file should be deleted")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	w, _ := m.Write(ctx, "x/a_part1.wav")
	io.WriteString(w, "one")
	w.Close()
	w, _ = m.Write(ctx, "x/a_part0.wav")
	io.WriteString(w, "zero")
	w.Close()
	w, _ = m.Write(ctx, "x/a_part2.wav")
	io.WriteString(w, "two")
	Discard(ctx, m, "x/a_part2.wav", w)

	got := m.Paths("x/")
	if len(got) != 2 || got[0] != "x/a_part0.wav" || got[1] != "x/a_part1.wav" {
		t.Fatalf("Paths = %v", got)
	}
	if string(m.Bytes("x/a_part0.wav")) != "zero" {
		t.Fatalf("Bytes = %q", m.Bytes("x/a_part0.wav"))
	}
	if _, err := m.Read(ctx, "x/missing"); !os.IsNotExist(errors.Unwrap(err)) {
		t.Fatalf("Read missing: %v", err)
	}
	m.Delete(ctx, "x/a_part0.wav")
	if ok, _ := m.Exists(ctx, "x/a_part0.wav"); ok {
		t.Fatal("deleted file exists")
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"a_part0.wav":  "audio/wav",
		"a_part0.opus": "audio/ogg",
		"a_part0.raw":  "application/octet-stream",
	} {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
