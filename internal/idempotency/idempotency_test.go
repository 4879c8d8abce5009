package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	redisadapter "github.com/robertarktes/gatherly/internal/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	data map[string]redisadapter.StoredResponse
	ttls map[string]time.Duration
	err  error
}

func newMemBackend() *memBackend {
	return &memBackend{
		data: make(map[string]redisadapter.StoredResponse),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memBackend) Get(_ context.Context, key string) (*redisadapter.StoredResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	resp, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (m *memBackend) Set(_ context.Context, key string, resp redisadapter.StoredResponse, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = resp
	m.ttls[key] = ttl
	return nil
}

func TestIdempotency_RoundTrip(t *testing.T) {
	backend := newMemBackend()
	idemp := NewIdempotency(backend, time.Hour)
	ctx := context.Background()

	got, err := idemp.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, idemp.Set(ctx, "key-1", Response{Status: 201, Result: []byte(`{"booking_id":"BK1"}`)}))
	assert.Equal(t, time.Hour, backend.ttls["key-1"])

	got, err = idemp.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.JSONEq(t, `{"booking_id":"BK1"}`, string(got.Result))
}

func TestIdempotency_BackendError(t *testing.T) {
	backend := newMemBackend()
	backend.err = errors.New("connection refused")
	idemp := NewIdempotency(backend, time.Hour)

	_, err := idemp.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, idemp.Set(context.Background(), "k", Response{Status: 200}))
}
