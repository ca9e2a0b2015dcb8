package spsc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_DropModeCountsDrops(t *testing.T) {
	ch, err := NewChannel[int](4, BackpressureCfg{HighWM: 2, Mode: Drop})
	require.NoError(t, err)

	var stop atomic.Bool
	for i := 0; i < 4; i++ {
		ch.Push(i, &stop)
	}
	ok := ch.Push(99, &stop)
	assert.False(t, ok)
	assert.Equal(t, uint64(3), ch.Stats.DropsTotal.Load())
}

func TestChannel_SpinModeResumesAtLowWatermark(t *testing.T) {
	ch, err := NewChannel[int](8, BackpressureCfg{HighWM: 6, LowWM: 2, Mode: Spin})
	require.NoError(t, err)

	var stop atomic.Bool
	for i := 0; i < 6; i++ {
		require.True(t, ch.Push(i, &stop))
	}

	done := make(chan bool, 1)
	go func() {
		done <- ch.Push(999, &stop)
	}()

	time.Sleep(5 * time.Millisecond)
	var out int
	for i := 0; i < 5; i++ {
		require.True(t, ch.Pop(&out))
	}

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("producer never resumed after drain below low watermark")
	}
}

func TestChannel_PushHonorsStopFlag(t *testing.T) {
	ch, err := NewChannel[int](2, BackpressureCfg{HighWM: 1, Mode: Spin})
	require.NoError(t, err)

	var stop atomic.Bool
	require.True(t, ch.Push(1, &stop))
	stop.Store(true)
	assert.False(t, ch.Push(2, &stop))
}

func TestChannel_PopTracksStats(t *testing.T) {
	ch, err := NewChannel[int](4, BackpressureCfg{HighWM: 4, Mode: Drop})
	require.NoError(t, err)

	var stop atomic.Bool
	ch.Push(1, &stop)
	ch.Push(2, &stop)

	var out int
	require.True(t, ch.Pop(&out))
	require.True(t, ch.Pop(&out))
	assert.Equal(t, uint64(2), ch.Stats.PopOk.Load())
}
