package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// MaxTxAttempts bounds the optimistic retry loop of an atomic update. The
// loop only spins when a watched key changed under the transaction; plain
// store failures are never retried.
const MaxTxAttempts = 5

var ErrTooMuchContention = errors.New("atomic update aborted after repeated contention")

func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Atomically runs txn under WATCH on the given keys, retrying only when the
// transaction aborted because a watched key changed. This is the single
// conditional fetch-patch-return primitive every mutating repository
// operation is built on; it substitutes for explicit locks.
func Atomically(ctx context.Context, client *redis.Client, txn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < MaxTxAttempts; attempt++ {
		err := client.Watch(ctx, txn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return ErrTooMuchContention
}
