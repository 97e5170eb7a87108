package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{PerMinute: 2, Now: func() time.Time { return now }})
	defer rl.Stop()

	assert.True(t, rl.Allow("5511999990000"))
	assert.True(t, rl.Allow("5511999990000"))
	assert.False(t, rl.Allow("5511999990000"))
	assert.True(t, rl.Allow("5511888880000"), "keys are limited independently")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("5511999990000"), "a new window resets the count")
	assert.Equal(t, 2, rl.ActiveKeys())
}

func TestLimiter_Disabled(t *testing.T) {
	rl := NewLimiter(Config{PerMinute: 0})
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("x"))
	}
	assert.Equal(t, 0, rl.ActiveKeys())
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{PerMinute: 5, Now: func() time.Time { return now }})
	defer rl.Stop()

	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")

	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveKeys())
}

func TestLimiter_StopTwice(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
