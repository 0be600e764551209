package rate

import (
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 100_000

type fixedCounter struct {
	count       int
	windowStart time.Time
}

// FixedWindow is an in-process counter per key.
//
// It is not shared across processes and is meant as a coarse first filter.
// Entries whose window has elapsed are evicted by Sweep, which runs on a
// background ticker when SweepInterval > 0.
type FixedWindow struct {
	policy     Policy
	now        func() time.Time
	maxEntries int

	mu      sync.Mutex
	entries map[string]*fixedCounter

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFixedWindow returns a local limiter and starts its sweeper when configured.
func NewFixedWindow(policy Policy, now func() time.Time) *FixedWindow {
	if now == nil {
		now = time.Now
	}
	maxEntries := policy.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	f := &FixedWindow{
		policy:     policy,
		now:        now,
		maxEntries: maxEntries,
		entries:    make(map[string]*fixedCounter),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if policy.SweepInterval > 0 {
		go f.sweepLoop(policy.SweepInterval)
	} else {
		close(f.done)
	}
	return f
}

// Allow resets the window when it has elapsed, increments, and admits while count <= Limit.
func (f *FixedWindow) Allow(_ context.Context, key string) (bool, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.entries[key]
	if !ok {
		if len(f.entries) >= f.maxEntries {
			f.sweepLocked(now)
			if len(f.entries) >= f.maxEntries {
				return false, ErrCapacityExceeded
			}
		}
		c = &fixedCounter{windowStart: now}
		f.entries[key] = c
	}

	if now.Sub(c.windowStart) > f.policy.Window {
		c.count = 0
		c.windowStart = now
	}
	c.count++

	return c.count <= f.policy.Limit, nil
}

// Sweep evicts entries whose window has elapsed and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweepLocked(now)
}

func (f *FixedWindow) sweepLocked(now time.Time) int {
	removed := 0
	for key, c := range f.entries {
		if now.Sub(c.windowStart) > f.policy.Window {
			delete(f.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FixedWindow) sweepLoop(interval time.Duration) {
	defer close(f.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Sweep()
		case <-f.stop:
			return
		}
	}
}

// Policy returns the policy this limiter enforces.
func (f *FixedWindow) Policy() Policy {
	return f.policy
}

// Close stops the sweeper and waits for it to exit.
func (f *FixedWindow) Close() error {
	f.closeOnce.Do(func() {
		close(f.stop)
		<-f.done
	})
	return nil
}
