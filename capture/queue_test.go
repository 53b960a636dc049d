package capture

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameQueue_DropsOldest(t *testing.T) {
	q := NewFrameQueue("test", 2, nil)
	for i := range 5 {
		q.Push(&RawFrame{Timestamp: uint64(i)})
	}

	assert.Equal(t, uint64(3), q.Dropped())
	for _, want := range []uint64{3, 4} {
		f, err := q.Pop(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, f.Timestamp)
	}
}

func TestFrameQueue_PopTimeout(t *testing.T) {
	q := NewFrameQueue("test", 0, nil)

	_, err := q.Pop(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, ErrFrameTimeout)
}

func TestFrameQueue_PopContext(t *testing.T) {
	q := NewFrameQueue("test", 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFrameQueue_Close(t *testing.T) {
	q := NewFrameQueue("test", 0, nil)

	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background(), 0)
		done <- err
	}()

	q.Close()
	q.Close()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Pop did not return after Close")
	}

	q.Push(&RawFrame{})
	assert.Zero(t, q.Dropped())
}

func TestShouldLogEvery(t *testing.T) {
	var last atomic.Int64
	assert.True(t, ShouldLogEvery(&last, time.Hour))
	assert.False(t, ShouldLogEvery(&last, time.Hour))
	assert.True(t, ShouldLogEvery(nil, time.Hour))
	assert.True(t, ShouldLogEvery(&last, 0))
}
