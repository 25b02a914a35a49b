// Package queue publishes reading events to a message broker and lets
// tooling subscribe to them.
package queue

import "context"

// Well-known message headers
const (
	HeaderReadingID   = "reading-id"
	HeaderContentType = "content-type"
	// HeaderMessageKey carries Message.Key on brokers without a native key
	HeaderMessageKey = "message-key"
)

// Message is one broker message.
// Key is used for partitioning where the broker supports it (Kafka).
type Message struct {
	Subject string
	Key     string
	Data    []byte
	Headers map[string]string
}

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to its subject/topic
	Publish(ctx context.Context, msg Message) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error leaves the
// message unacknowledged where the broker supports redelivery.
type MessageHandler func(msg Message) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

func copyHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
