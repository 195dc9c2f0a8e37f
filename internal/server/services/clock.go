package services

import (
	"sync"
	"time"
)

// stampClock hands out strictly increasing epoch-microsecond change times,
// so a ListFiles cursor never skips a row written in the same microsecond.
type stampClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func newStampClock(now func() time.Time) *stampClock {
	return &stampClock{now: now}
}

func (c *stampClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UnixMicro()
	if t <= c.last {
		t = c.last + 1
	}
	c.last = t
	return t
}
