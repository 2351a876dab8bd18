package kernel

import (
	"context"
	"sync"
	"time"
)

// Clock is the kernel's notion of time, in microseconds.
type Clock interface {
	Now() uint64
	// WaitUntil returns once Now() >= us, or when ctx is done.
	WaitUntil(ctx context.Context, us uint64) error
}

// HostClock follows the wall clock from the moment it was created.
type HostClock struct {
	start time.Time
}

func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

func (c *HostClock) Now() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

func (c *HostClock) WaitUntil(ctx context.Context, us uint64) error {
	now := c.Now()
	if now >= us {
		return nil
	}
	timer := time.NewTimer(time.Duration(us-now) * time.Microsecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VirtualClock only moves when told to, or when the scheduler is idle and
// jumps it to the next deadline.
type VirtualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Advance(us uint64) {
	c.mu.Lock()
	c.now += us
	c.mu.Unlock()
}

func (c *VirtualClock) AdvanceTo(us uint64) {
	c.mu.Lock()
	if us > c.now {
		c.now = us
	}
	c.mu.Unlock()
}

func (c *VirtualClock) WaitUntil(ctx context.Context, us uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.AdvanceTo(us)
	return nil
}
