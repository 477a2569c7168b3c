// Package ratelimit implements a per-client sliding window limiter shared by
// the HTTP and gRPC transports.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	hits      map[string][]time.Time
	maxMemory int
	now       func() time.Time
}

func New(maxHits int, window time.Duration) *Limiter {
	if maxHits <= 0 {
		maxHits = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &Limiter{
		maxHits:   maxHits,
		window:    window,
		hits:      make(map[string][]time.Time),
		maxMemory: 5000,
		now:       time.Now,
	}
}

// Allow records a hit for key. When the window is full it returns false and
// how long the caller should wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[key]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= l.maxHits {
		retryAfter := filtered[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hits[key] = filtered
		return false, retryAfter
	}

	l.hits[key] = append(filtered, now)

	if len(l.hits) > l.maxMemory {
		for k, v := range l.hits {
			if len(v) == 0 || v[len(v)-1].Before(threshold) {
				delete(l.hits, k)
			}
		}
	}

	return true, 0
}
