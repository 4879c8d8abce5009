package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/gatherly/internal/adapters/redis"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := c.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache_Availability(t *testing.T) {
	cache := redisadapter.NewCache(startRedis(t))
	ctx := context.Background()

	_, ok, err := cache.GetAvailability(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.Availability{AvailableSeats: 3}
	require.NoError(t, cache.SetAvailability(ctx, "evt-1", want, time.Minute))

	got, ok, err := cache.GetAvailability(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.InvalidateAvailability(ctx, "evt-1"))
	_, ok, err = cache.GetAvailability(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotency_StoresResponse(t *testing.T) {
	idemp := redisadapter.NewIdempotency(startRedis(t))
	ctx := context.Background()

	resp, err := idemp.Get(ctx, "sess:key")
	require.NoError(t, err)
	assert.Nil(t, resp)

	require.NoError(t, idemp.Set(ctx, "sess:key", redisadapter.StoredResponse{Status: 201, Result: []byte(`{}`)}, time.Minute))
	resp, err = idemp.Get(ctx, "sess:key")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestUndecodableEntriesAreDroppedAsMisses(t *testing.T) {
	client := startRedis(t)
	cache := redisadapter.NewCache(client)
	idemp := redisadapter.NewIdempotency(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "avail:evt-1", "not json", time.Minute).Err())
	require.NoError(t, client.Set(ctx, "idemp:sess:key", "{truncated", time.Minute).Err())

	_, ok, err := cache.GetAvailability(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)

	resp, err := idemp.Get(ctx, "sess:key")
	require.NoError(t, err)
	assert.Nil(t, resp)

	n, err := client.Exists(ctx, "avail:evt-1", "idemp:sess:key").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
