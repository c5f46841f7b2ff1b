package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Burst(t *testing.T) {
	rl := NewIPRateLimiter(1, 3, time.Hour)
	defer rl.Close()

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("192.0.2.1") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
	assert.True(t, rl.Allow("192.0.2.2"), "separate bucket per IP")
	assert.Equal(t, 2, rl.Len())
}

func TestIPRateLimiter_Unlimited(t *testing.T) {
	rl := NewIPRateLimiter(0, 0, time.Hour)
	defer rl.Close()

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("192.0.2.1"))
	}
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	rl := NewIPRateLimiter(10, 10, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("192.0.2.1")

	now = now.Add(30 * time.Second)
	rl.Allow("192.0.2.2")

	now = now.Add(45 * time.Second)
	rl.cleanup()
	assert.Equal(t, 1, rl.Len(), "only the idle IP is evicted")
	assert.True(t, rl.Allow("192.0.2.1"))
}

func TestIPRateLimiter_Concurrent(t *testing.T) {
	rl := NewIPRateLimiter(1000, 1000, time.Hour)
	defer rl.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rl.Allow("192.0.2.1")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rl.Len())
}

func TestIPRateLimiter_CloseTwice(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, time.Hour)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}
