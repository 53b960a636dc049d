package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultFrameQueue = 4

// FrameQueue hands frames from a producer callback to a blocking reader.
// Push never blocks: when the queue is full the oldest frame is dropped so
// the reader always sees the most recent screen contents.
type FrameQueue struct {
	name  string
	log   *slog.Logger
	queue chan *RawFrame
	done  chan struct{}

	closeOnce sync.Once

	lastDropLog atomic.Int64
	dropped     atomic.Uint64
}

// NewFrameQueue returns a queue holding at most size frames.
func NewFrameQueue(name string, size int, log *slog.Logger) *FrameQueue {
	if size <= 0 {
		size = defaultFrameQueue
	}
	return &FrameQueue{
		name:  name,
		log:   log,
		queue: make(chan *RawFrame, size),
		done:  make(chan struct{}),
	}
}

func (q *FrameQueue) Push(frame *RawFrame) {
	if q == nil || frame == nil {
		return
	}

	select {
	case <-q.done:
		return
	default:
	}

	select {
	case q.queue <- frame:
		return
	default:
	}

	select {
	case <-q.queue:
		q.noteDrop()
	default:
	}

	select {
	case q.queue <- frame:
	default:
		q.noteDrop()
	}
}

func (q *FrameQueue) noteDrop() {
	total := q.dropped.Add(1)
	hotPathDebug(q.log, &q.lastDropLog, time.Second,
		"capture: dropped frame",
		"backend", q.name,
		"total", total,
		"queue", len(q.queue),
	)
}

// Pop waits for the next frame. A timeout <= 0 waits until ctx is done or
// the queue is closed.
func (q *FrameQueue) Pop(ctx context.Context, timeout time.Duration) (*RawFrame, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case f := <-q.queue:
		return f, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, fmt.Errorf("%s: %w after %s", q.name, ErrFrameTimeout, timeout)
	}
}

func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *FrameQueue) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
