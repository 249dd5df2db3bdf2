//go:build integration

package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"gatepass/internal/platform/config"
	"gatepass/internal/platform/redis"
)

// RedisContainer is a disposable Redis connected through the same client
// the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err == nil {
		var client *redis.Client
		client, err = redis.New(ctx, config.RedisConfig{URL: url, PoolSize: 10})
		if err == nil {
			return &RedisContainer{Container: container, URL: url, Client: client.Client}
		}
	}
	_ = container.Terminate(ctx)
	t.Fatalf("connect to redis container: %v", err)
	return nil
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
