package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestKey(t *testing.T) {
	a := Key("https://example.test", "alice")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("https://example.test", "alice"))
	assert.NotEqual(t, a, Key("https://example.test", "bob"))
	assert.NotContains(t, a, "alice")
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_AcquireRelease(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	locker := NewRedis(client)
	key := Key("https://example.test", "alice")

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, release(ctx))

	release2, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestRedis_ReleaseKeepsForeignToken(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	locker := NewRedis(client)

	release, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, client.Set(ctx, keyPrefix+"k", "someone-else", time.Minute).Err())
	require.NoError(t, release(ctx))

	val, err := client.Get(ctx, keyPrefix+"k").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}
