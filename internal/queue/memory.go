package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soltixdb/weathermetrics/internal/utils"
)

// ErrQueueClosed is returned when publishing to a closed memory queue
var ErrQueueClosed = errors.New("queue is closed")

// MemoryQueue implements Queue using in-memory channels.
// Useful for tests and single-process setups without a broker.
type MemoryQueue struct {
	channels      map[string]chan Message
	subscriptions map[string]context.CancelFunc
	bufferSize    int
	closed        bool
	mu            sync.RWMutex
}

func newMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = utils.DefaultBufferSize
	}
	return &MemoryQueue{
		channels:      make(map[string]chan Message),
		subscriptions: make(map[string]context.CancelFunc),
		bufferSize:    bufferSize,
	}
}

// getOrCreateChannel returns the subject channel, creating it on first use.
// Must be called with q.mu held for writing.
func (q *MemoryQueue) getOrCreateChannel(subject string) chan Message {
	if ch, exists := q.channels[subject]; exists {
		return ch
	}
	ch := make(chan Message, q.bufferSize)
	q.channels[subject] = ch
	return ch
}

// Publish enqueues a copy of the message. It fails instead of blocking when
// the subject buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg.Data = append([]byte(nil), msg.Data...)
	msg.Headers = copyHeaders(msg.Headers)

	// Holding the lock while sending keeps Close from closing the channel
	// underneath us; the send itself never blocks.
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.getOrCreateChannel(msg.Subject) <- msg:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", msg.Subject)
	}
}

// Subscribe starts a goroutine delivering messages of subject to handler.
// Handler errors drop the message; there is no redelivery.
func (q *MemoryQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	ch := q.getOrCreateChannel(subject)
	ctx, cancel := context.WithCancel(context.Background())
	q.subscriptions[subject] = cancel

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = handler(msg)
			}
		}
	}()

	return nil
}

// Unsubscribe stops delivery for subject
func (q *MemoryQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancel, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(q.subscriptions, subject)
	return nil
}

// Close stops all subscriptions and closes all channels
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}
	return nil
}

// PendingCount returns the number of undelivered messages for a subject
func (q *MemoryQueue) PendingCount(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
