package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall-clock instant every WallClock starts at unless told
// otherwise. Tokens signed against it are byte-stable across runs.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// WallClock is a settable wall clock for tests that exercise token expiry.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type WallClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewWallClock creates a clock reading start. A zero start selects Epoch.
func NewWallClock(start time.Time) *WallClock {
	if start.IsZero() {
		start = Epoch
	}
	return &WallClock{now: start}
}

// Now returns the current reading. Its signature matches time.Now so the
// method value can be passed wherever a clock function is accepted.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *WallClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *WallClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
