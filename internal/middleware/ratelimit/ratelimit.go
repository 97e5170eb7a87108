package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts events per key inside a fixed one-minute window.
type Limiter struct {
	mu           sync.Mutex
	keys         map[string]*keyInfo
	now          func() time.Time
	stopCleanup  chan struct{}
	shutdownOnce sync.Once

	perMinute       int
	cleanupInterval time.Duration
}

type keyInfo struct {
	windowStart time.Time
	lastSeen    time.Time
	count       int
}

// Config holds rate limiter configuration
type Config struct {
	PerMinute       int
	CleanupInterval time.Duration
	Now             func() time.Time
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PerMinute:       30,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter. A non-positive PerMinute disables limiting.
func NewLimiter(config Config) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	rl := &Limiter{
		keys:            make(map[string]*keyInfo),
		now:             config.Now,
		stopCleanup:     make(chan struct{}),
		perMinute:       config.PerMinute,
		cleanupInterval: config.CleanupInterval,
	}
	if rl.perMinute > 0 {
		go rl.startCleanup()
	}
	return rl
}

// Allow records one event for key and reports whether it is within the limit.
func (rl *Limiter) Allow(key string) bool {
	if rl.perMinute <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, exists := rl.keys[key]
	if !exists || now.Sub(info.windowStart) >= time.Minute {
		rl.keys[key] = &keyInfo{windowStart: now, lastSeen: now, count: 1}
		return true
	}

	info.count++
	info.lastSeen = now
	return info.count <= rl.perMinute
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes keys idle for more than 10 minutes
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	for key, info := range rl.keys {
		if info.lastSeen.Before(cutoff) {
			delete(rl.keys, key)
		}
	}
}

// ActiveKeys returns the number of currently tracked keys
func (rl *Limiter) ActiveKeys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.keys)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
