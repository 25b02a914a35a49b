package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP server timeouts
const (
	// DefaultReadTimeout bounds reading a full request including the body
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds writing a response
	DefaultWriteTimeout = 30 * time.Second

	// ShutdownTimeout is how long in-flight requests get on graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// Backend connection timeouts
const (
	// ConnectTimeout is the timeout for initial ping of Redis/Postgres/NATS
	ConnectTimeout = 5 * time.Second

	// EventPublishTimeout bounds publishing one reading event
	EventPublishTimeout = 3 * time.Second
)

// =============================================================================
// Query Constants
// =============================================================================

const (
	// DefaultLookbackDays is the statistics window used when no startDate is given
	DefaultLookbackDays = 7
)

// =============================================================================
// Retry and Buffer Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond

	// DefaultBufferSize is the default per-subject buffer of the in-memory queue
	DefaultBufferSize = 1024
)

// =============================================================================
// Storage Type Constants
// =============================================================================

// StorageType represents the reading store backend
type StorageType string

const (
	// StorageTypeMemory keeps readings in process memory (default)
	StorageTypeMemory StorageType = "memory"

	// StorageTypeRedis keeps readings in Redis sorted sets
	StorageTypeRedis StorageType = "redis"

	// StorageTypePostgres keeps readings in PostgreSQL tables
	StorageTypePostgres StorageType = "postgres"
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue used for reading events
type QueueType string

const (
	// QueueTypeNone disables event publishing (default)
	QueueTypeNone QueueType = "none"

	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)
