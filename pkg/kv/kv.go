// Package kv is a key-value store with hierarchical keys. Keys are string
// slices such as {"segments", jobID, "000003"} and are encoded by joining
// the segments with a separator byte (':' by default), so listing by a key
// prefix walks one level of the hierarchy in lexicographic order.
//
// Badger backs persistent stores; Memory serves tests and one-shot runs.
package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned for keys with a segment that contains the
	// separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Key is a hierarchical path. Segments must not contain the separator.
type Key []string

// String joins the segments with ':' for display.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by List and used by BatchSet.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns ErrNotFound if the key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	Set(ctx context.Context, key Key, value []byte) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key Key) error

	// List yields the entries strictly below prefix in lexicographic order
	// of the encoded key. An empty prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet stores all entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error

	// BatchDelete removes all keys atomically.
	BatchDelete(ctx context.Context, keys []Key) error

	Close() error
}

// DefaultSeparator joins key segments unless Options says otherwise.
const DefaultSeparator byte = ':'

// Options configures key encoding.
type Options struct {
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) encode(k Key) ([]byte, error) {
	s := o.sep()
	var buf bytes.Buffer
	for i, seg := range k {
		if strings.IndexByte(seg, s) >= 0 {
			return nil, fmt.Errorf("%w: segment %q contains separator %q", ErrInvalidKey, seg, s)
		}
		if i > 0 {
			buf.WriteByte(s)
		}
		buf.WriteString(seg)
	}
	return buf.Bytes(), nil
}

// prefix encodes k followed by the separator so that {"a","b"} does not
// match "a:bc". The empty key encodes to nil.
func (o *Options) prefix(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	p, err := o.encode(k)
	if err != nil {
		return nil, err
	}
	return append(p, o.sep()), nil
}

func (o *Options) decode(b []byte) Key {
	parts := bytes.Split(b, []byte{o.sep()})
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = string(p)
	}
	return k
}

func errSeq(err error) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		yield(Entry{}, err)
	}
}
