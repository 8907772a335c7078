package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The cache must degrade to miss/no-op behavior when Redis is unreachable;
// port 1 refuses connections immediately.
func TestUnreachableBackendDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, zap.NewNop())
	ctx := context.Background()

	var dest string
	require.False(t, c.Get(ctx, "some-key", &dest))
	require.Empty(t, dest)

	require.NotPanics(t, func() {
		c.Set(ctx, "some-key", "value", time.Minute)
		c.Delete(ctx, "some-key", "other-key")
		c.Delete(ctx)
	})
}

func TestSetSkipsUnencodableValues(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, zap.NewNop())

	require.NotPanics(t, func() {
		c.Set(context.Background(), "bad", make(chan int), time.Minute)
	})
}
