// Package ratelimit provides an in-process keyed sliding-window limiter.
// The counter is per process instance; multi-instance deployments need a
// shared implementation behind the same interface.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow allows at most limit hits per key within a rolling window.
// Check and record happen under one lock, so concurrent callers for the same
// key cannot both pass on a stale count.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func New(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a hit for key if the key is under its limit. When denied it
// returns how long until the oldest hit leaves the window.
func (w *SlidingWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= w.limit {
		w.hits[key] = kept
		retryAfter := kept[0].Add(w.window).Sub(now)
		return false, retryAfter, nil
	}

	w.hits[key] = append(kept, now)
	return true, 0, nil
}
