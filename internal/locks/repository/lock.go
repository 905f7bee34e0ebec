package repository

import (
	"context"
	"time"
)

const CollectionName = "Locks"

// LockRepository stores advisory locks. TryAcquire reports false when key is
// held by someone else; Release reports false when key is not held with token.
type LockRepository interface {
	TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) (bool, error)
}
