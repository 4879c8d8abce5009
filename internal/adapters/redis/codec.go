package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// namespace is a key prefix holding JSON values of one kind.
type namespace struct {
	client *redis.Client
	prefix string
}

func (n namespace) key(id string) string {
	return n.prefix + ":" + id
}

// get decodes the value under id into out. A missing key is a miss; so is a
// value that no longer decodes, which is deleted so the next write replaces it.
func (n namespace) get(ctx context.Context, id string, out interface{}) (bool, error) {
	key := n.key(id)
	val, err := n.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(val, out); err != nil {
		if delErr := n.client.Del(ctx, key).Err(); delErr != nil {
			return false, errors.Wrapf(delErr, "drop undecodable %s", key)
		}
		return false, nil
	}
	return true, nil
}

func (n namespace) set(ctx context.Context, id string, v interface{}, ttl time.Duration) error {
	key := n.key(id)
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(n.client.Set(ctx, key, data, ttl).Err(), "set %s", key)
}

func (n namespace) del(ctx context.Context, id string) error {
	key := n.key(id)
	return errors.Wrapf(n.client.Del(ctx, key).Err(), "del %s", key)
}
