// Package storage is the node's key-value store, backed by Pebble.
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond

	// defaultCacheSize is the default block cache size.
	defaultCacheSize = 8 << 20
)

// ErrExists is returned by Insert when the key is already present.
var ErrExists = errors.New("key already exists")

// Options tune a Storage. Zero values select defaults.
type Options struct {
	CacheSize    int64         // CacheSize is the block cache size in bytes
	SyncInterval time.Duration // SyncInterval is the period of background WAL syncs
}

// Storage is a key-value store backed by Pebble.
// Plain writes are NoSync and a background goroutine syncs the WAL
// periodically; Insert writes synchronously.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	insertMu sync.Mutex    // insertMu serializes check-and-set in Insert
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// Open opens or creates a store at path.
func Open(path string, opts Options) (*Storage, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	s := &Storage{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop(opts.SyncInterval)

	return s, nil
}

// Get returns the value for key, or nil if it does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get:\n%w", err)
	}
	defer closer.Close()

	// The value is invalid after closer.Close()
	return append([]byte(nil), value...), nil
}

// Has reports whether key exists.
func (s *Storage) Has(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get:\n%w", err)
	}
	closer.Close()

	return true, nil
}

// Set stores a key-value pair. The write is synced by the background loop.
func (s *Storage) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// Insert stores key only if it is absent and syncs the write before
// returning. It fails with ErrExists otherwise.
func (s *Storage) Insert(key, value []byte) error {
	s.insertMu.Lock()
	defer s.insertMu.Unlock()

	exists, err := s.Has(key)
	if err != nil {
		return err
	}

	if exists {
		return ErrExists
	}

	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("set:\n%w", err)
	}

	return nil
}

// Delete removes a key. The write is synced by the background loop.
func (s *Storage) Delete(key []byte) error {
	return s.db.Delete(key, pebble.NoSync)
}

// IteratePrefix calls fn for each pair whose key starts with prefix, in key
// order. Key and value are only valid during the call. Iteration stops at
// the first error fn returns.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("new iterator:\n%w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// It returns nil (unbounded) when the prefix is empty or all 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// Close stops the sync loop, syncs once more and closes the database.
func (s *Storage) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.sync(); err != nil {
		return err
	}

	return s.db.Close()
}

// startSyncLoop starts the goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop(interval time.Duration) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Storage) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
