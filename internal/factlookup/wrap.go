package factlookup

import (
	"context"
	"time"

	"github.com/bluele/gcache"
)

// Bounded enforces a hard timeout on an inner lookup. The inner call runs in
// its own goroutine so a backend that ignores its context still cannot hold
// the caller past the deadline.
type Bounded struct {
	inner   Lookup
	timeout time.Duration
}

// NewBounded wraps inner with a timeout.
func NewBounded(inner Lookup, timeout time.Duration) *Bounded {
	return &Bounded{inner: inner, timeout: timeout}
}

type lookupResult struct {
	value bool
	err   error
}

// Lookup implements Lookup.
func (b *Bounded) Lookup(ctx context.Context, subjectID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan lookupResult, 1)

	go func() {
		v, err := b.inner.Lookup(ctx, subjectID)
		done <- lookupResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return false, &UnavailableError{SubjectID: subjectID, Reason: "lookup timed out after " + b.timeout.String(), Err: ctx.Err()}
	}
}

const defaultCacheSize = 1024

// Cached memoizes authoritative answers for a TTL. Errors are never cached,
// so an unavailable backend is retried on the next call.
type Cached struct {
	inner Lookup
	cache gcache.Cache
}

// NewCached wraps inner with an LRU cache of size entries expiring after ttl.
func NewCached(inner Lookup, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = defaultCacheSize
	}

	return &Cached{
		inner: inner,
		cache: gcache.New(size).LRU().Expiration(ttl).Build(),
	}
}

// Lookup implements Lookup.
func (c *Cached) Lookup(ctx context.Context, subjectID string) (bool, error) {
	if v, err := c.cache.Get(subjectID); err == nil {
		return v.(bool), nil
	}

	alive, err := c.inner.Lookup(ctx, subjectID)
	if err != nil {
		return false, err
	}

	_ = c.cache.Set(subjectID, alive)

	return alive, nil
}

// Len returns the number of live cache entries.
func (c *Cached) Len() int {
	return c.cache.Len(true)
}
