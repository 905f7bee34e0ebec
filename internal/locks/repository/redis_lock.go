package repository

import (
	"context"
	"fmt"
	"medsched/pkg/config"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "medsched:lock:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLockRepository struct {
	cfg    *config.Config
	client *redis.Client
}

func NewRedisLockRepository(cfg *config.Config) LockRepository {
	return &redisLockRepository{
		cfg:    cfg,
		client: cfg.Client.Redis,
	}
}

func (r *redisLockRepository) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set lock: %w", err)
	}
	return ok, nil
}

func (r *redisLockRepository) Release(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, r.client, []string{redisKeyPrefix + key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return n == 1, nil
}
