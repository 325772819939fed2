package websocket

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
)

// OutboundQueue is the FIFO of payloads waiting to be written to the client.
// It decouples reading the backend from writing the client: Push never
// waits for the client. It is unbounded unless a max depth is given.
type OutboundQueue struct {
	mu       sync.Mutex
	items    *queue.Queue
	maxDepth int

	// ready holds a token while the queue may be non-empty.
	ready chan struct{}
}

// NewOutboundQueue returns an empty queue. maxDepth <= 0 means unbounded.
func NewOutboundQueue(maxDepth int) *OutboundQueue {
	return &OutboundQueue{
		items:    queue.New(),
		maxDepth: maxDepth,
		ready:    make(chan struct{}, 1),
	}
}

// Push appends payload. It fails with ErrQueueOverflow when the queue already
// holds maxDepth payloads.
func (q *OutboundQueue) Push(payload []byte) error {
	q.mu.Lock()
	if q.maxDepth > 0 && q.items.Length() >= q.maxDepth {
		q.mu.Unlock()
		return fmt.Errorf("%w: %d payloads pending", ErrQueueOverflow, q.maxDepth)
	}
	q.items.Add(payload)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes the oldest payload. ok is false when the queue is empty.
func (q *OutboundQueue) Pop() (payload []byte, ok bool) {
	q.mu.Lock()
	if q.items.Length() == 0 {
		q.mu.Unlock()
		return nil, false
	}
	payload = q.items.Remove().([]byte)
	remaining := q.items.Length()
	q.mu.Unlock()

	if remaining > 0 {
		q.signal()
	}
	return payload, true
}

// Ready receives a value when a payload may be available. Wakeups can be
// spurious; Pop tells for sure.
func (q *OutboundQueue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of pending payloads.
func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *OutboundQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
