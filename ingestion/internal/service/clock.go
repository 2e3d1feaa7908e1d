package service

import (
	"sync"
	"time"
)

// Clock supplies received_at timestamps.
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns UTC wall-clock time that never goes backwards,
// even if the system clock is stepped back. Successive calls may return
// equal values.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

func (c *MonotonicClock) Now() time.Time {
	// Round(0) drops the monotonic reading so comparisons use wall time,
	// which is what gets persisted.
	t := c.now().Round(0).UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}
