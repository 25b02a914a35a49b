package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	URL      string
	Username string
	Password string
	Stream   string // Stream name prefix (default: "WEATHER")
	Durable  string // Durable consumer prefix (default: "weather-events")
}

// NATSQueue implements Queue using NATS JetStream.
// One stream is created per subject on first use.
type NATSQueue struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	config        NATSConfig
	streams       map[string]bool
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// newNATSQueue connects to NATS and enables JetStream
func newNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	opts := []nats.Option{
		nats.Name("weathermetrics"),
		nats.Timeout(utils.ConnectTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

// newNATSQueueWithConn wraps an existing connection (used in tests)
func newNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "WEATHER"
	}
	if cfg.Durable == "" {
		cfg.Durable = "weather-events"
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		config:        cfg,
		streams:       make(map[string]bool),
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// streamName derives the JetStream stream for a subject
func (q *NATSQueue) streamName(subject string) string {
	return sanitizeName(q.config.Stream + "-" + subject)
}

// ensureStream creates the subject's stream when it does not exist yet
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.streams[subject] {
		return nil
	}

	name := q.streamName(subject)
	if _, err := q.js.StreamInfo(name); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream %s: %w", name, err)
		}
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream for subject %s: %w", subject, err)
		}
	}

	q.streams[subject] = true
	return nil
}

func toNATSMsg(msg Message) *nats.Msg {
	m := nats.NewMsg(msg.Subject)
	m.Data = msg.Data
	for k, v := range msg.Headers {
		m.Header.Set(k, v)
	}
	if msg.Key != "" {
		m.Header.Set(HeaderMessageKey, msg.Key)
	}
	return m
}

func fromNATSMsg(m *nats.Msg) Message {
	msg := Message{Subject: m.Subject, Data: m.Data}
	if len(m.Header) > 0 {
		msg.Headers = make(map[string]string, len(m.Header))
		for k := range m.Header {
			msg.Headers[k] = m.Header.Get(k)
		}
		msg.Key = msg.Headers[HeaderMessageKey]
		delete(msg.Headers, HeaderMessageKey)
	}
	return msg
}

// Publish publishes a message and waits for the JetStream acknowledgement
func (q *NATSQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.ensureStream(msg.Subject); err != nil {
		return err
	}
	if _, err := q.js.PublishMsg(toNATSMsg(msg), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", msg.Subject, err)
	}
	return nil
}

// Subscribe subscribes with a durable JetStream consumer and manual acks.
// A handler error NAKs the message for redelivery.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	durableName := sanitizeName(q.config.Durable + "-" + subject)

	sub, err := q.js.Subscribe(subject, func(m *nats.Msg) {
		if err := handler(fromNATSMsg(m)); err != nil {
			_ = m.Nak()
			return
		}
		_ = m.Ack()
	},
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(utils.DefaultMaxRetries),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = sub
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, exists := q.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}

	delete(q.subscriptions, subject)
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, sub := range q.subscriptions {
		_ = sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}

	q.conn.Close()
	return nil
}

// sanitizeName replaces characters that are not allowed in stream and
// consumer names. Only A-Z, a-z, 0-9, dash and underscore are kept.
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
