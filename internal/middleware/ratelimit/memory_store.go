package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count        int
	window       time.Duration
	windowStart  time.Time
	blockedUntil time.Time
}

// MemoryStore keeps counters in process memory. It is only correct for
// single-instance deployments; use RedisStore when running several replicas.
type MemoryStore struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	now         func() time.Time
	lastCleanup time.Time
	cleanupEach time.Duration
}

// NewMemoryStore creates an in-memory counter store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:     make(map[string]*bucket),
		now:         time.Now,
		cleanupEach: 5 * time.Minute,
	}
}

// Hit records one request for key under policy
func (s *MemoryStore) Hit(_ context.Context, key string, p Policy) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanup(now)

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{windowStart: now}
		s.buckets[key] = b
	}
	b.window = p.Window

	if now.Before(b.blockedUntil) {
		return Decision{Allowed: false, Count: b.count, RetryAfter: b.blockedUntil.Sub(now)}, nil
	}

	if now.Sub(b.windowStart) >= p.Window {
		b.count = 0
		b.windowStart = now
	}

	b.count++
	if b.count <= p.Max {
		return Decision{Allowed: true, Count: b.count}, nil
	}

	count := b.count
	if p.Block > 0 {
		b.blockedUntil = now.Add(p.Block)
		b.count = 0
		b.windowStart = b.blockedUntil
		return Decision{Allowed: false, Count: count, RetryAfter: p.Block}, nil
	}
	return Decision{Allowed: false, Count: count, RetryAfter: b.windowStart.Add(p.Window).Sub(now)}, nil
}

// cleanup drops idle buckets; called with the lock held
func (s *MemoryStore) cleanup(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupEach {
		return
	}
	s.lastCleanup = now

	for key, b := range s.buckets {
		if now.After(b.blockedUntil) && now.Sub(b.windowStart) >= b.window+s.cleanupEach {
			delete(s.buckets, key)
		}
	}
}
