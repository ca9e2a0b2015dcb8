package spsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRing_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := NewRing[int](100)
	assert.Error(t, err)

	_, err = NewRing[int](128)
	assert.NoError(t, err)
}

func TestRing_FifoThroughWraparound(t *testing.T) {
	r, err := NewRing[int](1024)
	require.NoError(t, err)

	for i := 0; i < 512; i++ {
		require.True(t, r.TryPush(i))
	}
	var out int
	for i := 0; i < 128; i++ {
		require.True(t, r.TryPop(&out))
		require.Equal(t, i, out)
	}

	// Push past the ring's capacity so the slot index wraps around,
	// draining one slot whenever it is full, and confirm values come
	// back out strictly in push order.
	next := 512
	for next < 1800 {
		pushed := r.TryPush(next)
		if !pushed {
			require.True(t, r.TryPop(&out))
			continue
		}
		next++
	}

	prev := -1
	for r.TryPop(&out) {
		require.Greater(t, out, prev)
		prev = out
	}
}

func TestRing_TryPushFailsWhenFull(t *testing.T) {
	r, err := NewRing[int](2)
	require.NoError(t, err)
	require.True(t, r.TryPush(1))
	require.True(t, r.TryPush(2))
	assert.False(t, r.TryPush(3))
	assert.True(t, r.Full())
}

func TestRing_TryPopFailsWhenEmpty(t *testing.T) {
	r, err := NewRing[int](4)
	require.NoError(t, err)
	var out int
	assert.False(t, r.TryPop(&out))
	assert.True(t, r.Empty())
}

func TestRing_BulkHelpers(t *testing.T) {
	r, err := NewRing[int](8)
	require.NoError(t, err)

	next := 0
	pushed := r.TryPushBulk(5, func() int {
		next++
		return next
	})
	assert.Equal(t, 5, pushed)

	var got []int
	popped := r.TryPopBulk(10, func(v int) {
		got = append(got, v)
	})
	assert.Equal(t, 5, popped)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}
