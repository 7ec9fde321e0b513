package gate

import (
	"context"
	"sync"
	"time"
)

// Resolver resolves an employee id to a Subject.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Subject, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id string) (*Subject, error)

func (f ResolverFunc) Resolve(ctx context.Context, id string) (*Subject, error) { return f(ctx, id) }

// CachedResolver wraps a Resolver with TTL-based caching.
// This avoids hitting the database on every authorization check.
type CachedResolver struct {
	inner Resolver
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	subject   *Subject
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long subjects are cached before re-fetching.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Resolve returns the subject for id, using the cache if available.
func (r *CachedResolver) Resolve(ctx context.Context, id string) (*Subject, error) {
	r.mu.RLock()
	entry, ok := r.cache[id]
	r.mu.RUnlock()

	if ok && r.now().Before(entry.expiresAt) {
		return entry.subject, nil
	}

	subject, err := r.inner.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = &cacheEntry{subject: subject, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return subject, nil
}

// Invalidate removes an employee from the cache.
// Call this when the employee's role or permissions change.
func (r *CachedResolver) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}
