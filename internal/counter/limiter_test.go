package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"))
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(1, time.Minute)
	rl.sweepAt = 2
	rl.now = func() time.Time { return now }

	rl.allow("a")
	rl.allow("b")
	now = now.Add(2 * time.Minute)
	rl.allow("c")

	assert.Len(t, rl.hits, 1)
	assert.Contains(t, rl.hits, "c")
}
