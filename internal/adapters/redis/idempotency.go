package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency keeps the first successful response per session-scoped
// Idempotency-Key.
type Idempotency struct {
	responses namespace
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{responses: namespace{client: client, prefix: "idemp"}}
}

type StoredResponse struct {
	Status int    `json:"status"`
	Result []byte `json:"result"`
}

// Get returns nil when nothing usable is stored under key.
func (i *Idempotency) Get(ctx context.Context, key string) (*StoredResponse, error) {
	var resp StoredResponse
	ok, err := i.responses.get(ctx, key, &resp)
	if err != nil || !ok {
		return nil, err
	}
	return &resp, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	return i.responses.set(ctx, key, resp, ttl)
}
