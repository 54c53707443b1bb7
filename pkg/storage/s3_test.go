package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct{ code string }

func (e *apiError) Error() string                 { return "api error " + e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeBucket is an in-memory S3Client. The err fields fail every call of
// the matching operation.
type fakeBucket struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string

	getErr, putErr, deleteErr, headErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (b *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.putErr != nil {
		return nil, b.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[*in.Key] = data
	if in.ContentType != nil {
		b.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if b.deleteErr != nil {
		return nil, b.deleteErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (b *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if b.headErr != nil {
		return nil, b.headErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (b *fakeBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

func put(t *testing.T, fs FileStore, path, data string) {
	t.Helper()
	w, err := fs.Write(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestS3RoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	store := NewS3(bucket, "audio", "calls/2026")
	ctx := context.Background()

	put(t, store, "talk_part0.wav", "first")
	put(t, store, "talk_part0.wav", "second")

	r, err := store.Read(ctx, "talk_part0.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "second" {
		t.Errorf("read %q, want the last write", got)
	}
	if ct := bucket.contentTypes["calls/2026/talk_part0.wav"]; ct != "audio/wav" {
		t.Errorf("content type = %q, want audio/wav", ct)
	}

	ok, err := store.Exists(ctx, "talk_part0.wav")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, "talk_part0.wav"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "talk_part0.wav"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok, err := store.Exists(ctx, "talk_part0.wav"); err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v", ok, err)
	}
	if _, err := store.Read(ctx, "talk_part0.wav"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read after delete err = %v, want os.ErrNotExist", err)
	}
}

func TestS3Keys(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "a_part0.wav", "a_part0.wav"},
		{"", "/a_part0.wav", "a_part0.wav"},
		{"seg", "a_part0.wav", "seg/a_part0.wav"},
		{"/seg/", "out/a_part0.wav", "seg/out/a_part0.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"|"+tt.path, func(t *testing.T) {
			if got := NewS3(newFakeBucket(), "b", tt.prefix).key(tt.path); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestS3Errors(t *testing.T) {
	boom := errors.New("connection reset")
	ctx := context.Background()
	tests := []struct {
		name  string
		setup func(b *fakeBucket)
		call  func(s *S3Store) error
	}{
		{"read", func(b *fakeBucket) { b.getErr = boom }, func(s *S3Store) error {
			_, err := s.Read(ctx, "x.wav")
			return err
		}},
		{"exists", func(b *fakeBucket) { b.headErr = boom }, func(s *S3Store) error {
			_, err := s.Exists(ctx, "x.wav")
			return err
		}},
		{"delete", func(b *fakeBucket) { b.deleteErr = boom }, func(s *S3Store) error {
			return s.Delete(ctx, "x.wav")
		}},
		{"upload", func(b *fakeBucket) { b.putErr = boom }, func(s *S3Store) error {
			w, err := s.Write(ctx, "x.wav")
			if err != nil {
				return err
			}
			io.WriteString(w, "data") // may fail once the upload has given up
			return w.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBucket()
			tt.setup(b)
			err := tt.call(NewS3(b, "audio", "seg"))
			if !errors.Is(err, boom) || errors.Is(err, os.ErrNotExist) {
				t.Fatalf("err = %v, want it to wrap %v", err, boom)
			}
			if !strings.Contains(err.Error(), "s3://audio/seg/x.wav") {
				t.Errorf("err = %v, want the object location", err)
			}
		})
	}
}

func TestS3Abort(t *testing.T) {
	bucket := newFakeBucket()
	store := NewS3(bucket, "audio", "")
	ctx := context.Background()

	w, err := store.Write(ctx, "a_part0.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "partial"); err != nil {
		t.Fatal(err)
	}
	if err := Discard(ctx, store, "a_part0.wav", w); err != nil {
		t.Fatal(err)
	}
	if keys := bucket.keys(); len(keys) != 0 {
		t.Fatalf("aborted upload left %v", keys)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&apiError{code: "NoSuchKey"}, true},
		{&apiError{code: "NotFound"}, true},
		{&apiError{code: "AccessDenied"}, false},
		{errors.New("timeout"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isS3NotFound(tt.err); got != tt.want {
			t.Errorf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
