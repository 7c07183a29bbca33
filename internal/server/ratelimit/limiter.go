// Package ratelimit admits requests per client with a refilling token bucket.
//
// Each client key gets a bucket of Capacity tokens that refills
// continuously, Capacity tokens per Window. Buckets are created on first
// use. A bucket idle for a whole Window is full again, so it is evicted and
// recreated later without changing any admission decision; beyond that the
// number of tracked clients is capped with LRU eviction. Idle expiry follows
// the wall clock even when refill uses an injected clock.
package ratelimit

import (
	"sync"
	"time"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	buckets  *expirable.LRU[string, *rate.Limiter]
	capacity int
	refill   rate.Limit
	now      func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now for refill accounting. Idle eviction always
// runs on the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a limiter granting capacity requests per window to each
// client, tracking at most maxClients clients.
func New(capacity int, window time.Duration, maxClients int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:  expirable.NewLRU[string, *rate.Limiter](maxClients, nil, window),
		capacity: capacity,
		refill:   rate.Limit(float64(capacity) / window.Seconds()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit consumes one token from key's bucket and reports whether one was
// available.
func (l *Limiter) Admit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.refill, l.capacity)
	}
	// re-adding restarts the idle timer
	l.buckets.Add(key, bucket)

	return bucket.AllowN(l.now(), 1)
}

// Len is the number of clients currently tracked.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// PerformIfAllowed runs work only when key is admitted. It returns
// common.ErrUnknownClientKey for an empty key and common.ErrRateExceeded
// when the bucket is empty; work is not called in either case.
func PerformIfAllowed[T any](l *Limiter, key string, work func() (T, error)) (T, error) {
	var zero T
	if key == "" {
		return zero, common.ErrUnknownClientKey
	}
	if !l.Admit(key) {
		return zero, common.ErrRateExceeded
	}
	return work()
}
