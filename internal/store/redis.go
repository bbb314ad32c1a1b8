package store

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/rowquota/internal/auth"
)

// RedisKeyStore is a Redis implementation of auth.Source.
// Key limits live in a single hash: access key -> max rows.
type RedisKeyStore struct {
	client  redis.UniversalClient
	hashKey string
}

// NewRedisKeyStore creates a new Redis-backed key limit store.
func NewRedisKeyStore(client redis.UniversalClient) *RedisKeyStore {
	return &RedisKeyStore{
		client:  client,
		hashKey: "key_limits",
	}
}

func (r *RedisKeyStore) KeyLimit(ctx context.Context, key string) (auth.KeyLimit, bool, error) {
	if limit, ok := auth.Reserved(key); ok {
		return limit, true, nil
	}

	value, err := r.client.HGet(ctx, r.hashKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.KeyLimit{}, false, nil
		}

		return auth.KeyLimit{}, false, auth.NewLookupError(errors.WithMessage(err, "hget key limit"))
	}

	maxRows, err := strconv.Atoi(value)
	if err != nil {
		return auth.KeyLimit{}, false, auth.NewLookupError(errors.WithMessage(err, "parse key limit"))
	}

	return auth.Limit(maxRows), true, nil
}

// Apply writes a fixture's key limits. Records are ignored.
func (r *RedisKeyStore) Apply(ctx context.Context, fixture *Fixture) error {
	if len(fixture.KeyLimits) == 0 {
		return nil
	}

	values := make(map[string]any, len(fixture.KeyLimits))
	for key, maxRows := range fixture.KeyLimits {
		values[key] = maxRows
	}

	return errors.WithMessage(r.client.HSet(ctx, r.hashKey, values).Err(), "hset key limits")
}

// Compile-time check.
var _ auth.Source = (*RedisKeyStore)(nil)
