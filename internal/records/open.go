package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/db"
)

// Open builds the record and job stores on the configured backend. The
// returned func releases the backend's connections.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, *JobStore, func(), error) {
	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return NewStore(backend, cfg.Records.Key, logger), NewJobStore(backend, logger), closeFn, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, func(), error) {
	switch cfg.Records.Backend {
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisBackend(client), func() { client.Close() }, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		backend, err := NewPostgresBackend(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return backend, pool.Close, nil
	default:
		return NewMemoryBackend(), func() {}, nil
	}
}
