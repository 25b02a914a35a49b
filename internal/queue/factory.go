package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// NewQueue creates a broker-backed Queue based on configuration.
// The "none" type has no subscriber side and is rejected here; use
// NewPublisher for it.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	switch queueType {
	case utils.QueueTypeNATS:
		q, err := newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Stream:   cfg.NATSStream,
			Durable:  cfg.ConsumerGroup,
		})
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeRedis:
		q, err := newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			MaxLen:   cfg.RedisMaxLen,
			Group:    cfg.ConsumerGroup,
		})
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeKafka:
		q, err := newKafkaQueue(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.ConsumerGroup,
		})
		if err != nil {
			return nil, err
		}
		return q, nil

	case utils.QueueTypeMemory:
		return newMemoryQueue(utils.DefaultBufferSize), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}

// NewPublisher creates a Publisher based on configuration.
// An empty type or "none" yields a NopPublisher.
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	switch utils.QueueType(strings.ToLower(cfg.Type)) {
	case "", utils.QueueTypeNone:
		return NopPublisher{}, nil
	}
	return NewQueue(cfg)
}

// NewSubscriber creates a Subscriber based on configuration
func NewSubscriber(cfg config.QueueConfig) (Subscriber, error) {
	return NewQueue(cfg)
}
