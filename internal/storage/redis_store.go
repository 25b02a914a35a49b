package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// RedisStore keeps readings in Redis.
//
// Layout, with <p> the configured key prefix:
//
//	<p>:reading:<id>   reading blob (see readingCodec)
//	<p>:readings       sorted set of reading ids scored by Unix milliseconds
//	<p>:sensor:<id>    same, per sensor
//	<p>:seq            insertion counter
type RedisStore struct {
	client *redis.Client
	prefix string
	codec  readingCodec
	logger *logging.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, logger *logging.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 && opts.DB == 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, utils.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := newRedisStoreWithClient(client, cfg.KeyPrefix, cfg.Compress, logger)
	store.logger.Info("Redis store initialized",
		"addr", opts.Addr,
		"db", opts.DB,
		"prefix", store.prefix,
		"compress", cfg.Compress)
	return store, nil
}

func newRedisStoreWithClient(client *redis.Client, prefix string, compress bool, logger *logging.Logger) *RedisStore {
	if prefix == "" {
		prefix = "weather"
	}
	if logger == nil {
		logger = logging.Global()
	}
	logger = logger.Named("storage.redis")
	return &RedisStore{
		client: client,
		prefix: prefix,
		codec:  newReadingCodec(compress),
		logger: logger,
	}
}

func (s *RedisStore) readingKey(id string) string { return s.prefix + ":reading:" + id }
func (s *RedisStore) allKey() string              { return s.prefix + ":readings" }
func (s *RedisStore) sensorKey(id string) string  { return s.prefix + ":sensor:" + id }
func (s *RedisStore) seqKey() string              { return s.prefix + ":seq" }

// Append stores the reading blob and its index entries in one MULTI/EXEC
func (s *RedisStore) Append(ctx context.Context, reading models.Reading) (models.Reading, error) {
	stored := prepareReading(reading)

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to allocate reading sequence: %w", err)
	}

	blob, err := s.codec.encode(stored, uint64(seq))
	if err != nil {
		return models.Reading{}, err
	}

	score := float64(stored.Timestamp.UnixMilli())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.readingKey(stored.ID), blob, 0)
		pipe.ZAdd(ctx, s.allKey(), redis.Z{Score: score, Member: stored.ID})
		pipe.ZAdd(ctx, s.sensorKey(stored.SensorID), redis.Z{Score: score, Member: stored.ID})
		return nil
	})
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to store reading: %w", err)
	}

	return stored, nil
}

// List returns the readings of the given sensors, or all readings
func (s *RedisStore) List(ctx context.Context, sensorIDs []string) ([]models.Reading, error) {
	return s.load(ctx, sensorIDs, "-inf", "+inf", nil)
}

// ListBetween returns readings with timestamps within [start, end].
// Scores have millisecond precision, so the score range is widened to whole
// milliseconds and the exact bounds are applied after decoding.
func (s *RedisStore) ListBetween(ctx context.Context, sensorIDs []string, start, end time.Time) ([]models.Reading, error) {
	if end.Before(start) {
		return []models.Reading{}, nil
	}
	minScore := strconv.FormatInt(start.UnixMilli(), 10)
	maxScore := strconv.FormatInt(end.UnixMilli(), 10)
	return s.load(ctx, sensorIDs, minScore, maxScore, func(r models.Reading) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	})
}

func (s *RedisStore) load(ctx context.Context, sensorIDs []string, minScore, maxScore string, keep func(models.Reading) bool) ([]models.Reading, error) {
	indexKeys := []string{s.allKey()}
	if len(sensorIDs) > 0 {
		indexKeys = indexKeys[:0]
		for _, id := range uniqueSensors(sensorIDs) {
			indexKeys = append(indexKeys, s.sensorKey(id))
		}
	}

	var ids []string
	for _, key := range indexKeys {
		members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: minScore, Max: maxScore}).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read index %s: %w", key, err)
		}
		ids = append(ids, members...)
	}
	if len(ids) == 0 {
		return []models.Reading{}, nil
	}

	blobKeys := make([]string, len(ids))
	for i, id := range ids {
		blobKeys[i] = s.readingKey(id)
	}
	values, err := s.client.MGet(ctx, blobKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	out := make([]*storedReading, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without blob; skip rather than fail the whole query
			s.logger.Warn("Reading blob missing", "reading_id", ids[i])
			continue
		}
		r, seq, err := s.codec.decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode reading %s: %w", ids[i], err)
		}
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, &storedReading{seq: seq, reading: r})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].before(out[j])
	})

	readings := make([]models.Reading, len(out))
	for i, sr := range out {
		readings[i] = sr.reading
	}
	return readings, nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
