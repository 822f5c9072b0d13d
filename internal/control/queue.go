package control

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close, and by Recv once the queue is
// closed and drained. Receivers treat it as a shutdown signal.
var ErrClosed = errors.New("control queue closed")

// Queue is an unbounded FIFO of commands. Send never waits for the receiver.
// A single receiver is expected.
type Queue struct {
	mu     sync.Mutex
	items  []Command
	closed bool

	ready chan struct{} // one pending wake-up
	done  chan struct{} // closed by Close
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send appends a command. It must not be called from the audio callback.
func (q *Queue) Send(cmd Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Recv blocks until a command is available, the queue is closed and empty,
// or ctx is done. Commands queued before Close are still delivered.
func (q *Queue) Recv(ctx context.Context) (Command, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return cmd, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return 0, ErrClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further sends. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
