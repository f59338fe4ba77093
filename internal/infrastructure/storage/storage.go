// Package storage selects the durable key/value backend the session is
// persisted to.
package storage

import (
	"context"
	"fmt"

	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/memory"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/mongo"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/redis"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage/sqlite"
	"github.com/resumeforge/tailor-client/internal/pkg/config"
)

// Open connects the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (ports.KeyValueStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			return nil, err
		}
		return redis.NewStore(client, cfg.RedisPrefix), nil
	case config.BackendMongo:
		_, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, err
		}
		return mongo.NewStore(db, ""), nil
	}
	return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
}
