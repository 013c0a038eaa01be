package records

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each blob in one Redis string without expiry.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisClient parses a redis:// or rediss:// URL. A bare host:port is
// accepted too. Commands are traced through OpenTelemetry.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		opt = parsed
	}
	client := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: "gijiroku:",
	}
}

func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisBackend) Store(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.prefix+key, data, 0).Err()
}
