package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClock_StartsAtEpoch(t *testing.T) {
	clock := NewWallClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestWallClock_CustomStart(t *testing.T) {
	start := time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := NewWallClock(start)
	assert.Equal(t, start, clock.Now())
}

func TestWallClock_Advance(t *testing.T) {
	clock := NewWallClock(time.Time{})

	clock.Advance(time.Minute)
	clock.Advance(30 * time.Second)

	assert.Equal(t, Epoch.Add(90*time.Second), clock.Now())
}

func TestWallClock_Set(t *testing.T) {
	clock := NewWallClock(time.Time{})
	target := Epoch.Add(-time.Hour)

	clock.Set(target)

	assert.Equal(t, target, clock.Now())
}

func TestWallClock_ConcurrentAdvance(t *testing.T) {
	clock := NewWallClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(100*time.Second), clock.Now())
}
