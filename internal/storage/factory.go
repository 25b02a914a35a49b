package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

// NewReadingStore creates the reading store selected by configuration.
// Memory is used when the type is not specified.
func NewReadingStore(ctx context.Context, cfg config.StorageConfig, logger *logging.Logger) (ReadingStore, error) {
	storageType := utils.StorageType(strings.ToLower(cfg.Type))
	if storageType == "" {
		storageType = utils.StorageTypeMemory
	}

	switch storageType {
	case utils.StorageTypeMemory:
		return NewMemoryStore(logger), nil

	case utils.StorageTypeRedis:
		store, err := NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	case utils.StorageTypePostgres:
		store, err := NewPostgresStore(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s (supported: memory, redis, postgres)", storageType)
	}
}
