package events

import (
	"sync/atomic"

	"lobengine/internal/spsc"
)

// DefaultCapacity matches the original engine's default event ring
// size: generous enough that a consumer falling briefly behind never
// loses an event under normal load.
const DefaultCapacity = 1 << 20

// Bus is a single-producer/single-consumer queue of Events between the
// matching engine and whatever drains it (a reporting goroutine, a
// benchmark harness, a TCP session fan-out). A full bus drops the
// event rather than block the engine; DropsTotal makes that loss
// observable to an operator instead of silent.
type Bus struct {
	ring       *spsc.Ring[Event]
	dropsTotal atomic.Uint64
}

// NewBus constructs a Bus with the given capacity, which must be a
// power of two.
func NewBus(capacity uint64) (*Bus, error) {
	ring, err := spsc.NewRing[Event](capacity)
	if err != nil {
		return nil, err
	}
	return &Bus{ring: ring}, nil
}

// TryPublish enqueues e. Returns false and counts a drop if the bus is
// full.
func (b *Bus) TryPublish(e Event) bool {
	ok := b.ring.TryPush(e)
	if !ok {
		b.dropsTotal.Add(1)
	}
	return ok
}

// DropsTotal returns how many events have been dropped for a full bus
// since construction.
func (b *Bus) DropsTotal() uint64 {
	return b.dropsTotal.Load()
}

// TryPoll dequeues the oldest event. ok is false if the bus is empty.
func (b *Bus) TryPoll() (e Event, ok bool) {
	ok = b.ring.TryPop(&e)
	return e, ok
}

// Capacity returns the bus's fixed capacity.
func (b *Bus) Capacity() uint64 {
	return b.ring.Capacity()
}
