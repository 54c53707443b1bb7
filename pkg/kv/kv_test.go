package kv_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/haivivi/audioseg/pkg/kv"
)

type factory func(t *testing.T, opts *kv.Options) kv.Store

func backends() map[string]factory {
	return map[string]factory{
		"memory": func(t *testing.T, opts *kv.Options) kv.Store {
			s := kv.NewMemory(opts)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"badger": func(t *testing.T, opts *kv.Options) kv.Store {
			t.Helper()
			s, err := kv.NewBadger(kv.BadgerOptions{Options: opts, InMemory: true})
			if err != nil {
				t.Fatalf("NewBadger: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, newStore factory)) {
	for name, f := range backends() {
		t.Run(name, func(t *testing.T) { fn(t, f) })
	}
}

func listKeys(t *testing.T, s kv.Store, prefix kv.Key) []string {
	t.Helper()
	var keys []string
	for e, err := range s.List(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("List(%v): %v", prefix, err)
		}
		keys = append(keys, e.Key.String())
	}
	return keys
}

func TestGetSetDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		key := kv.Key{"jobs", "0b6c"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get missing: %v", err)
		}
		if err := s.Set(ctx, key, []byte("v1")); err != nil {
			t.Fatal(err)
		}
		if err := s.Set(ctx, key, []byte("v2")); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, key)
		if err != nil || string(got) != "v2" {
			t.Fatalf("Get = %q, %v", got, err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("second Delete: %v", err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get after delete: %v", err)
		}
	})
}

func TestListOrderAndBoundary(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		err := s.BatchSet(ctx, []kv.Entry{
			{Key: kv.Key{"segments", "a", "000002"}, Value: []byte("2")},
			{Key: kv.Key{"segments", "a", "000000"}, Value: []byte("0")},
			{Key: kv.Key{"segments", "a", "000001"}, Value: []byte("1")},
			{Key: kv.Key{"segments", "ab", "000000"}, Value: []byte("x")},
			{Key: kv.Key{"jobs", "a"}, Value: []byte("j")},
		})
		if err != nil {
			t.Fatal(err)
		}

		want := []string{"segments:a:000000", "segments:a:000001", "segments:a:000002"}
		if got := listKeys(t, s, kv.Key{"segments", "a"}); !slices.Equal(got, want) {
			t.Errorf("List = %v, want %v", got, want)
		}
		if got := listKeys(t, s, nil); len(got) != 5 {
			t.Errorf("List(nil) = %v", got)
		}

		// Early break stops iteration.
		n := 0
		for range s.List(ctx, kv.Key{"segments"}) {
			n++
			break
		}
		if n != 1 {
			t.Errorf("iterated %d entries after break", n)
		}

		if err := s.BatchDelete(ctx, []kv.Key{{"segments", "a", "000000"}, {"segments", "a", "000001"}}); err != nil {
			t.Fatal(err)
		}
		if got := listKeys(t, s, kv.Key{"segments", "a"}); !slices.Equal(got, want[2:]) {
			t.Errorf("List after BatchDelete = %v", got)
		}
	})
}

func TestCustomSeparator(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, &kv.Options{Separator: '/'})
		// ':' is an ordinary character with this separator.
		if err := s.Set(ctx, kv.Key{"t", "12:30"}, []byte("v")); err != nil {
			t.Fatal(err)
		}
		if got := listKeys(t, s, kv.Key{"t"}); !slices.Equal(got, []string{"t:12:30"}) {
			t.Errorf("List = %v", got)
		}
	})
}

func TestInvalidKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		if err := s.Set(ctx, kv.Key{"bad:seg"}, []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
			t.Errorf("Set: %v", err)
		}
		if _, err := s.Get(ctx, kv.Key{"bad:seg"}); !errors.Is(err, kv.ErrInvalidKey) {
			t.Errorf("Get: %v", err)
		}
		for _, err := range s.List(ctx, kv.Key{"a:b"}) {
			if !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("List: %v", err)
			}
		}
	})
}

func TestValueIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newStore factory) {
		ctx := context.Background()
		s := newStore(t, nil)
		val := []byte("original")
		s.Set(ctx, kv.Key{"k"}, val)
		val[0] = 'X'
		got, _ := s.Get(ctx, kv.Key{"k"})
		if string(got) != "original" {
			t.Fatalf("stored value aliased caller slice: %q", got)
		}
		got[0] = 'Y'
		again, _ := s.Get(ctx, kv.Key{"k"})
		if string(again) != "original" {
			t.Fatalf("stored value aliased returned slice: %q", again)
		}
	})
}

func TestBadgerDirRequired(t *testing.T) {
	_, err := kv.NewBadger(kv.BadgerOptions{})
	if err == nil || !strings.Contains(err.Error(), "Dir is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestBadgerPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, kv.Key{"jobs", "x"}, []byte("rec")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"jobs", "x"})
	if err != nil || string(got) != "rec" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}
