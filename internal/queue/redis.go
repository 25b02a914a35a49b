package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

const (
	redisFieldData   = "data"
	redisFieldKey    = "key"
	redisHeaderField = "h:"
)

// RedisConfig represents Redis Streams configuration
type RedisConfig struct {
	URL      string // Redis URL (e.g., redis://localhost:6379)
	Password string // Optional password
	DB       int    // Database number (default: 0)
	Stream   string // Stream prefix (default: "weather")
	MaxLen   int64  // Approximate stream length cap, 0 = unbounded
	Group    string // Consumer group name (default: "weather-events")
	Consumer string // Consumer name (default: hostname)

	// RedeliverAfter is how long a delivered but unacknowledged message
	// waits before it is claimed and handed to a handler again (default: 5s)
	RedeliverAfter time.Duration
	// MaxDeliver bounds deliveries of one message; it is acknowledged and
	// dropped afterwards (default: 3)
	MaxDeliver int64
}

// RedisQueue implements Queue using Redis Streams
type RedisQueue struct {
	client        *redis.Client
	config        RedisConfig
	subscriptions map[string]context.CancelFunc
	mu            sync.Mutex
}

// newRedisQueue creates a Redis Streams queue and checks the connection
func newRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Accept a bare host:port as well
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisQueueWithClient(client, cfg), nil
}

func newRedisQueueWithClient(client *redis.Client, cfg RedisConfig) *RedisQueue {
	if cfg.Stream == "" {
		cfg.Stream = "weather"
	}
	if cfg.Group == "" {
		cfg.Group = "weather-events"
	}
	if cfg.RedeliverAfter <= 0 {
		cfg.RedeliverAfter = 5 * time.Second
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = utils.DefaultMaxRetries
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}

	return &RedisQueue{
		client:        client,
		config:        cfg,
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// streamName converts a subject to a Redis stream name
func (q *RedisQueue) streamName(subject string) string {
	return fmt.Sprintf("%s:%s", q.config.Stream, subject)
}

func (q *RedisQueue) addArgs(msg Message) *redis.XAddArgs {
	values := map[string]interface{}{
		redisFieldData: msg.Data,
	}
	if msg.Key != "" {
		values[redisFieldKey] = msg.Key
	}
	for k, v := range msg.Headers {
		values[redisHeaderField+k] = v
	}

	args := &redis.XAddArgs{
		Stream: q.streamName(msg.Subject),
		ID:     "*",
		Values: values,
	}
	if q.config.MaxLen > 0 {
		args.MaxLen = q.config.MaxLen
		args.Approx = true
	}
	return args
}

// Publish appends a message to the subject's stream
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	args := q.addArgs(msg)
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis stream %s: %w", args.Stream, err)
	}
	return nil
}

// Subscribe reads the subject's stream through a consumer group
func (q *RedisQueue) Subscribe(subject string, handler MessageHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	stream := q.streamName(subject)
	ctx, cancel := context.WithCancel(context.Background())

	err := q.client.XGroupCreateMkStream(ctx, stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		cancel()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go q.readStream(ctx, subject, stream, handler)

	q.subscriptions[subject] = cancel
	return nil
}

// readStream delivers new messages until ctx is cancelled.
// Messages are acknowledged only when the handler succeeds; unacknowledged
// ones are picked up again by redeliverPending.
func (q *RedisQueue) readStream(ctx context.Context, subject, stream string, handler MessageHandler) {
	block := min(5*time.Second, q.config.RedeliverAfter)
	lastSweep := time.Now()

	for {
		if ctx.Err() != nil {
			return
		}

		if time.Since(lastSweep) >= q.config.RedeliverAfter {
			q.redeliverPending(ctx, subject, stream, handler)
			lastSweep = time.Now()
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.Group,
			Consumer: q.config.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			time.Sleep(utils.DefaultRetryBackoff)
			continue
		}

		for _, s := range streams {
			q.deliver(ctx, subject, stream, s.Messages, handler)
		}
	}
}

// redeliverPending claims messages idle for RedeliverAfter, whichever
// consumer of the group holds them, and delivers them again. Messages that
// reached MaxDeliver are acknowledged without delivery.
func (q *RedisQueue) redeliverPending(ctx context.Context, subject, stream string, handler MessageHandler) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  q.config.Group,
		Idle:   q.config.RedeliverAfter,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	var retry []string
	for _, p := range pending {
		if p.RetryCount >= q.config.MaxDeliver {
			q.client.XAck(ctx, stream, q.config.Group, p.ID)
			continue
		}
		retry = append(retry, p.ID)
	}
	if len(retry) == 0 {
		return
	}

	claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		MinIdle:  q.config.RedeliverAfter,
		Messages: retry,
	}).Result()
	if err != nil {
		return
	}
	q.deliver(ctx, subject, stream, claimed, handler)
}

func (q *RedisQueue) deliver(ctx context.Context, subject, stream string, xmsgs []redis.XMessage, handler MessageHandler) {
	for _, xmsg := range xmsgs {
		msg, ok := fromRedisValues(subject, xmsg.Values)
		if ok && handler(msg) != nil {
			continue
		}
		q.client.XAck(ctx, stream, q.config.Group, xmsg.ID)
	}
}

func fromRedisValues(subject string, values map[string]interface{}) (Message, bool) {
	data, ok := values[redisFieldData].(string)
	if !ok {
		return Message{}, false
	}

	msg := Message{Subject: subject, Data: []byte(data)}
	if key, ok := values[redisFieldKey].(string); ok {
		msg.Key = key
	}
	for field, v := range values {
		name, isHeader := strings.CutPrefix(field, redisHeaderField)
		if !isHeader {
			continue
		}
		if s, ok := v.(string); ok {
			if msg.Headers == nil {
				msg.Headers = make(map[string]string)
			}
			msg.Headers[name] = s
		}
	}
	return msg, true
}

// Unsubscribe stops reading a subject
func (q *RedisQueue) Unsubscribe(subject string) error {
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

// Close stops all readers and closes the Redis client
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, cancel := range q.subscriptions {
		cancel()
		delete(q.subscriptions, subject)
	}

	return q.client.Close()
}
