package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores pairs as plain string keys under a prefix. Batches run inside MULTI/EXEC
// so readers never observe a partial write.
type Redis struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedis wraps a caller-owned client. Close does not close the client.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get issues one MGET for every key.
//
//	Performance: 1 Redis round trip.
func (r *Redis) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for i, v := range values {
		switch s := v.(type) {
		case string:
			out[keys[i]] = s
		case []byte:
			out[keys[i]] = string(s)
		}
	}
	return out, nil
}

// Apply runs DEL and SET commands in one transaction.
//
//	Performance: 1 Redis round trip (MULTI/EXEC pipeline).
func (r *Redis) Apply(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(batch.Delete) > 0 {
			full := make([]string, len(batch.Delete))
			for i, k := range batch.Delete {
				full[i] = r.key(k)
			}
			pipe.Del(ctx, full...)
		}
		for k, v := range batch.Set {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the client only when it was created by [Open].
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
