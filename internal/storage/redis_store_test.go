package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore connects to REDIS_URL and returns a store using a
// throwaway key prefix
func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis store test")
	}

	prefix := "weather-test-" + uuid.NewString()[:8]
	store, err := NewRedisStore(context.Background(), config.RedisConfig{
		URL:       url,
		KeyPrefix: prefix,
		Compress:  true,
	}, logging.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := store.client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			store.client.Del(ctx, keys...)
		}
		_ = store.Close()
	})
	return store
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), config.RedisConfig{URL: "not-a-url"}, logging.NewNop())
	assert.Error(t, err)
}

func TestRedisStore_Keys(t *testing.T) {
	s := newRedisStoreWithClient(redis.NewClient(&redis.Options{}), "", false, nil)
	defer func() { _ = s.Close() }()

	assert.Equal(t, "weather:reading:abc", s.readingKey("abc"))
	assert.Equal(t, "weather:readings", s.allKey())
	assert.Equal(t, "weather:sensor:s1", s.sensorKey("s1"))
}

func TestRedisStore_AppendAndList(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	stored := appendAll(t, store,
		newTestReading("s1", t0.Add(2*time.Hour), 3),
		newTestReading("s2", t0, 1),
		newTestReading("s1", t0.Add(time.Hour), 2),
		newTestReading("s2", t0.Add(time.Hour), 22),
	)
	assert.NotEmpty(t, stored[0].ID)

	all, err := store.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 22, 3}, temps(all))
	assert.Equal(t, stored[1], all[0])

	s1, err := store.List(ctx, []string{"s1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, temps(s1))
}

func TestRedisStore_ListBetweenSubMillisecond(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	appendAll(t, store,
		newTestReading("s1", t0.Add(100*time.Microsecond), 1),
		newTestReading("s1", t0.Add(900*time.Microsecond), 2),
		newTestReading("s1", t0.Add(time.Millisecond), 3),
	)

	got, err := store.ListBetween(ctx, nil, t0.Add(500*time.Microsecond), t0.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, temps(got))

	got, err = store.ListBetween(ctx, []string{"s1"}, t0.Add(time.Second), t0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
