package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers       []string      // Kafka broker addresses
	GroupID       string        // Consumer group ID (default: "weather-events")
	BatchSize     int           // Batch size for producer (default: 100)
	BatchTimeout  time.Duration // Batch timeout for producer (default: 10ms)
	RequiredAcks  int           // Required acks: 0=none, 1=leader, -1=all (default: 1)
	MaxRetries    int           // Producer write attempts (default: 3)
	RetryBackoff  time.Duration // Pause after fetch or commit failures (default: 100ms)
	CommitRetries int           // Consumer commit attempts (default: 3)
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.GroupID == "" {
		c.GroupID = "weather-events"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = int(kafka.RequireOne)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = utils.DefaultMaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = utils.DefaultRetryBackoff
	}
	if c.CommitRetries <= 0 {
		c.CommitRetries = utils.DefaultMaxRetries
	}
	return c
}

// kafkaSubscription is one consumer-group reader and its consume loop.
type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the loop, closes the reader and waits for the loop to exit.
func (s *kafkaSubscription) stop() error {
	s.cancel()
	err := s.reader.Close()
	<-s.done
	return err
}

// KafkaQueue implements Queue using Apache Kafka.
// Message keys are hashed to pick the partition, so events of one sensor
// stay ordered.
type KafkaQueue struct {
	config  KafkaConfig
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	subs    map[string]*kafkaSubscription
}

// newKafkaQueue creates a Kafka queue. Connections are opened lazily.
func newKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	return &KafkaQueue{
		config:  cfg.withDefaults(),
		writers: make(map[string]*kafka.Writer),
		subs:    make(map[string]*kafkaSubscription),
	}, nil
}

// getOrCreateWriter returns the writer for a topic, creating it on first use
func (q *KafkaQueue) getOrCreateWriter(topic string) *kafka.Writer {
	q.mu.Lock()
	defer q.mu.Unlock()

	if w, ok := q.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(q.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              q.config.BatchSize,
		BatchTimeout:           q.config.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(q.config.RequiredAcks),
		MaxAttempts:            q.config.MaxRetries,
		AllowAutoTopicCreation: true,
	}
	q.writers[topic] = w
	return w
}

func toKafkaMessage(msg Message) kafka.Message {
	km := kafka.Message{Value: msg.Data, Time: time.Now()}
	if msg.Key != "" {
		km.Key = []byte(msg.Key)
	}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km
}

func fromKafkaMessage(km kafka.Message) Message {
	msg := Message{Subject: km.Topic, Key: string(km.Key), Data: km.Value}
	if len(km.Headers) == 0 {
		return msg
	}
	msg.Headers = make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Publish writes a message to the topic named by its subject
func (q *KafkaQueue) Publish(ctx context.Context, msg Message) error {
	if err := q.getOrCreateWriter(msg.Subject).WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", msg.Subject, err)
	}
	return nil
}

// Subscribe consumes a topic as part of the configured consumer group
func (q *KafkaQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.subs[subject]; ok {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &kafkaSubscription{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  q.config.Brokers,
			GroupID:  q.config.GroupID,
			Topic:    subject,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		}),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	q.subs[subject] = sub

	go q.consume(ctx, sub, handler)
	return nil
}

// consume commits a message only after the handler accepted it.
func (q *KafkaQueue) consume(ctx context.Context, sub *kafkaSubscription, handler MessageHandler) {
	defer close(sub.done)

	for {
		km, err := sub.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			if !pause(ctx, q.config.RetryBackoff) {
				return
			}
			continue
		}

		if handler(fromKafkaMessage(km)) != nil {
			continue
		}
		if !q.commit(ctx, sub.reader, km) {
			return
		}
	}
}

// commit retries CommitMessages. It returns false once ctx is done.
func (q *KafkaQueue) commit(ctx context.Context, reader *kafka.Reader, km kafka.Message) bool {
	for attempt := 0; attempt < q.config.CommitRetries; attempt++ {
		if reader.CommitMessages(ctx, km) == nil {
			return true
		}
		if !pause(ctx, q.config.RetryBackoff) {
			return false
		}
	}
	return ctx.Err() == nil
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Unsubscribe stops consuming a topic
func (q *KafkaQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	sub, ok := q.subs[subject]
	delete(q.subs, subject)
	q.mu.Unlock()

	if !ok {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	return sub.stop()
}

// Close stops every subscription and flushes every writer
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	subs := q.subs
	writers := q.writers
	q.subs = make(map[string]*kafkaSubscription)
	q.writers = make(map[string]*kafka.Writer)
	q.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, w := range writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
