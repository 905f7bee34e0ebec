package service

import (
	"context"
	"fmt"
	lockerrors "medsched/internal/locks/errors"
	"medsched/internal/locks/repository"
	"medsched/pkg/config"
	"medsched/pkg/logger"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Locker serializes check-then-write sequences that span several documents.
type Locker interface {
	// Acquire takes key for ttl and returns the owner token.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

type locker struct {
	repo repository.LockRepository
	log  *logger.Logger
}

func NewLocker(repo repository.LockRepository, log *logger.Logger) Locker {
	return &locker{repo: repo, log: log}
}

// NewLockerFromConfig picks the backend named by cfg.LockBackend.
func NewLockerFromConfig(cfg *config.Config) Locker {
	var repo repository.LockRepository
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		repo = repository.NewRedisLockRepository(cfg)
	default:
		repo = repository.NewMongoLockRepository(cfg)
	}
	return NewLocker(repo, cfg.Log)
}

// Key joins parts into a lock key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (l *locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.repo.TryAcquire(ctx, key, token, ttl)
	if err != nil {
		l.log.Error("Failed to acquire lock", "key", key, "error", err)
		return "", err
	}
	if !ok {
		l.log.Debug("Lock busy", "key", key)
		return "", fmt.Errorf("%w: %s", lockerrors.ErrLockHeld, key)
	}
	l.log.Debug("Lock acquired", "key", key, "ttl", ttl)
	return token, nil
}

func (l *locker) Release(ctx context.Context, key, token string) error {
	ok, err := l.repo.Release(ctx, key, token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", lockerrors.ErrNotOwner, key)
	}
	l.log.Debug("Lock released", "key", key)
	return nil
}
