package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used key should be evicted")
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)

	c.Set("wamid.1", "x")
	clock.Advance(30 * time.Second)
	_, ok := c.Get("wamid.1")
	assert.True(t, ok)

	clock.Advance(31 * time.Second)
	_, ok = c.Get("wamid.1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_SetIfAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[struct{}](10, time.Minute).WithClock(clock.Now)

	assert.True(t, c.SetIfAbsent("wamid.1", struct{}{}))
	assert.False(t, c.SetIfAbsent("wamid.1", struct{}{}))

	clock.Advance(2 * time.Minute)
	assert.True(t, c.SetIfAbsent("wamid.1", struct{}{}), "expired key can be stored again")
}

func TestLRUCache_SetIfAbsentConcurrent(t *testing.T) {
	c := NewLRUCache[struct{}](100, time.Minute)

	var stored atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SetIfAbsent("same", struct{}{}) {
				stored.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), stored.Load())
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 0, m.Sweep())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 0, c.Size())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
