package spsc

import "sync/atomic"

// Stats counts channel activity for monitoring; every field is safe
// for concurrent access from the single producer and single consumer
// side, but is a best-effort snapshot when read from a third party.
type Stats struct {
	PushOk     atomic.Uint64
	PopOk      atomic.Uint64
	DropsTotal atomic.Uint64
	DepthGauge atomic.Uint64
	MaxDepth   atomic.Uint64
}

// ObserveDepth records the current queue depth and raises MaxDepth if
// d is a new high-water mark.
func (s *Stats) ObserveDepth(d uint64) {
	s.DepthGauge.Store(d)
	for {
		cur := s.MaxDepth.Load()
		if d <= cur {
			return
		}
		if s.MaxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}
