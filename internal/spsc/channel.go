package spsc

import (
	"runtime"
	"sync/atomic"
	"time"
)

// BpMode selects what a Channel does when the queue depth reaches its
// high watermark.
type BpMode uint8

const (
	// Drop refuses the push and counts a drop.
	Drop BpMode = iota
	// Spin busy-waits (yielding the OS thread) until depth falls back
	// to the low watermark.
	Spin
	// Sleep is Spin but sleeps SleepNs between checks instead of
	// spinning the CPU.
	Sleep
)

// BackpressureCfg configures a Channel's behavior under load. LowWM
// defaults to HighWM when left at zero, giving no hysteresis band
// unless the caller asks for one.
type BackpressureCfg struct {
	HighWM  uint64
	LowWM   uint64
	Mode    BpMode
	SleepNs time.Duration
}

func (c BackpressureCfg) normalized() BackpressureCfg {
	if c.LowWM == 0 {
		c.LowWM = c.HighWM
	}
	if c.SleepNs == 0 {
		c.SleepNs = 5000
	}
	return c
}

func cpuRelax() {
	runtime.Gosched()
}

// Channel wraps a Ring with a backpressure policy and activity stats.
type Channel[T any] struct {
	ring  *Ring[T]
	cfg   BackpressureCfg
	Stats Stats
}

// NewChannel constructs a Channel over a ring of the given capacity.
func NewChannel[T any](capacity uint64, cfg BackpressureCfg) (*Channel[T], error) {
	ring, err := NewRing[T](capacity)
	if err != nil {
		return nil, err
	}
	return &Channel[T]{ring: ring, cfg: cfg.normalized()}, nil
}

// Push enqueues v, applying the configured backpressure policy once
// the ring's depth reaches HighWM. stop is polled on every iteration
// so a shutting-down producer is never stuck spinning or sleeping
// forever; it is checked first on every loop, so it is safe to pass a
// flag that may already be set.
func (c *Channel[T]) Push(v T, stop *atomic.Bool) bool {
	throttled := false
	for {
		if stop != nil && stop.Load() {
			return false
		}
		depth := c.ring.Size()
		c.Stats.ObserveDepth(depth)

		if throttled || depth >= c.cfg.HighWM {
			switch c.cfg.Mode {
			case Drop:
				c.Stats.DropsTotal.Add(1)
				return false
			case Spin:
				if depth > c.cfg.LowWM {
					throttled = true
					cpuRelax()
					continue
				}
			case Sleep:
				if depth > c.cfg.LowWM {
					throttled = true
					time.Sleep(c.cfg.SleepNs)
					continue
				}
			}
			throttled = false
		}

		if c.ring.TryPush(v) {
			c.Stats.PushOk.Add(1)
			return true
		}

		// Lost the race against the consumer; the ring filled up
		// between our depth check and the push. Apply the policy once
		// more instead of busy-retrying try-push directly.
		switch c.cfg.Mode {
		case Drop:
			c.Stats.DropsTotal.Add(1)
			return false
		case Spin:
			cpuRelax()
		case Sleep:
			time.Sleep(c.cfg.SleepNs)
		}
	}
}

// Pop dequeues into *out. Returns false if the channel is empty.
func (c *Channel[T]) Pop(out *T) bool {
	if !c.ring.TryPop(out) {
		return false
	}
	c.Stats.PopOk.Add(1)
	c.Stats.ObserveDepth(c.ring.Size())
	return true
}

// Size returns a best-effort snapshot of the channel's depth.
func (c *Channel[T]) Size() uint64 { return c.ring.Size() }

// Capacity returns the underlying ring's fixed capacity.
func (c *Channel[T]) Capacity() uint64 { return c.ring.Capacity() }
