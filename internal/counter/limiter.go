package counter

import (
	"sync"
	"time"
)

// rateLimiter is a per-key sliding-window rate limiter. Idle keys are swept
// on the request path once the map grows past sweepAt.
type rateLimiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	max     int
	window  time.Duration
	sweepAt int
	now     func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		hits:    make(map[string][]time.Time),
		max:     max,
		window:  window,
		sweepAt: 1024,
		now:     time.Now,
	}
}

// allow checks if key has not exceeded the limit and records the request.
func (rl *rateLimiter) allow(key string) bool {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.hits) >= rl.sweepAt {
		rl.sweep(cutoff)
	}

	kept := prune(rl.hits[key], cutoff)
	if len(kept) >= rl.max {
		rl.hits[key] = kept
		return false
	}
	rl.hits[key] = append(kept, now)
	return true
}

func (rl *rateLimiter) sweep(cutoff time.Time) {
	for key, hits := range rl.hits {
		if kept := prune(hits, cutoff); len(kept) == 0 {
			delete(rl.hits, key)
		} else {
			rl.hits[key] = kept
		}
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
