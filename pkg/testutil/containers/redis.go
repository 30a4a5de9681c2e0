//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"reliefpass/internal/platform/config"
	platformredis "reliefpass/internal/platform/redis"
)

// RedisContainer backs the redemption cache and sweep lease suites. Client
// is built by the same constructor the server uses.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client
}

func newRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	abort := func(step string, err error) {
		_ = container.Terminate(ctx)
		t.Fatalf("%s: %v", step, err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		abort("redis connection string", err)
	}
	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 20})
	if err != nil {
		abort("connect to redis", err)
	}
	return &RedisContainer{Container: container, URL: url, Client: client.Client}
}

// FlushAll drops every key; suites call it from SetupTest.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
