// Package refresh coalesces bursts of refresh requests per key.
package refresh

import (
	"context"
	"sync"
	"time"

	"nppflow/logging"
)

// Func performs one refresh.
type Func func(ctx context.Context) error

type slot struct {
	pending Func
}

// Coalescer allows one in-flight refresh per key plus at most one trailing
// follow-up. Requests arriving while a refresh runs collapse into the
// follow-up, which starts delay after the in-flight one returns and uses the
// latest Func.
type Coalescer struct {
	delay  time.Duration
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger

	mu    sync.Mutex
	slots map[string]*slot
	wg    sync.WaitGroup
}

// NewCoalescer creates a coalescer with the given trailing delay.
func NewCoalescer(delay time.Duration) *Coalescer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coalescer{
		delay:  delay,
		ctx:    ctx,
		cancel: cancel,
		logger: logging.Default().WithComponent("refresh"),
		slots:  make(map[string]*slot),
	}
}

// Trigger requests a refresh of key. It reports whether the request started a
// new refresh rather than joining one already in flight.
func (c *Coalescer) Trigger(key string, fn Func) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return false
	}
	if s, ok := c.slots[key]; ok {
		s.pending = fn
		return false
	}
	s := &slot{}
	c.slots[key] = s
	c.wg.Add(1)
	go c.run(key, s, fn)
	return true
}

func (c *Coalescer) run(key string, s *slot, fn Func) {
	defer c.wg.Done()
	for {
		if err := fn(c.ctx); err != nil {
			c.logger.Warn("Refresh failed", "key", key, "error", err)
		}

		c.mu.Lock()
		next := s.pending
		s.pending = nil
		if next == nil {
			delete(c.slots, key)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		timer := time.NewTimer(c.delay)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			c.mu.Lock()
			delete(c.slots, key)
			c.mu.Unlock()
			return
		}

		// Later triggers during the delay replace the follow-up.
		c.mu.Lock()
		if s.pending != nil {
			next = s.pending
			s.pending = nil
		}
		c.mu.Unlock()
		fn = next
	}
}

// InFlight reports whether key has a refresh running or waiting.
func (c *Coalescer) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[key]
	return ok
}

// Close cancels waiting follow-ups and waits for running refreshes to return.
func (c *Coalescer) Close() {
	c.cancel()
	c.wg.Wait()
}
