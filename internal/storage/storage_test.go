package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// newTestStorage opens a store in a temporary directory.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "db"), Options{})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStorage(t)

	key := []byte("test-key")
	value := []byte("test-value")

	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.Get([]byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q, want nil", got)
	}

	if ok, err := s.Has([]byte("non-existent")); err != nil || ok {
		t.Errorf("Has = %v, %v; want false", ok, err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	key := []byte("to-delete")

	if err := s.Set(key, []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got, _ := s.Get(key); got != nil {
		t.Errorf("Get after Delete returned %q, want nil", got)
	}
}

func TestInsert(t *testing.T) {
	s := newTestStorage(t)
	key := []byte("once")

	if err := s.Insert(key, []byte("first")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := s.Insert(key, []byte("second")); !errors.Is(err, ErrExists) {
		t.Fatalf("second Insert: expected ErrExists, got %v", err)
	}

	got, _ := s.Get(key)
	if !bytes.Equal(got, []byte("first")) {
		t.Errorf("Get returned %q, want %q", got, "first")
	}
}

// TestInsertConcurrent checks exactly one of many racing inserts wins.
func TestInsertConcurrent(t *testing.T) {
	s := newTestStorage(t)
	key := []byte("race")

	var wg sync.WaitGroup
	results := make([]error, 16)

	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.Insert(key, []byte(fmt.Sprint(i)))
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrExists) {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("%d inserts succeeded, want 1", wins)
	}
}

func TestIteratePrefix(t *testing.T) {
	s := newTestStorage(t)

	for _, k := range []string{"a:1", "a:2", "a:\xff", "b", "a", "b:1"} {
		if err := s.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var got []string
	err := s.IteratePrefix([]byte("a:"), func(key, _ []byte) error {
		got = append(got, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	want := []string{"a:1", "a:2", "a:\xff"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("keys = %q, want %q", got, want)
	}

	stop := errors.New("stop")
	calls := 0
	err = s.IteratePrefix([]byte("a:"), func(_, _ []byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("iteration did not stop: calls=%d err=%v", calls, err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte("a:"), []byte("a;")},
		{[]byte{'a', 0xff}, []byte{'b'}},
		{[]byte{0xff, 0xff}, nil},
		{nil, nil},
	}

	for _, tc := range tests {
		if got := prefixUpperBound(tc.in); !bytes.Equal(got, tc.want) {
			t.Errorf("prefixUpperBound(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Insert([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if got, _ := s.Get([]byte("k")); !bytes.Equal(got, []byte("v")) {
		t.Errorf("value after reopen = %q", got)
	}
}
