package repository

import (
	"context"
	"fmt"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	"medsched/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// TryAcquire inserts the lock document. The TTL monitor only runs once a
// minute, so an expired holder is evicted here before giving up.
func (r *mongoLockRepository) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		now := mongotx.Now()
		_, err := r.collection.InsertOne(ctx, &model.Lock{
			ID:        key,
			Token:     token,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		})
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to insert lock: %w", err)
		}

		res, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": now}})
		if err != nil {
			return false, fmt.Errorf("failed to evict expired lock: %w", err)
		}
		if res.DeletedCount == 0 {
			return false, nil
		}
	}
	return false, nil
}

func (r *mongoLockRepository) Release(ctx context.Context, key, token string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
	if err != nil {
		return false, fmt.Errorf("failed to delete lock: %w", err)
	}
	return res.DeletedCount == 1, nil
}
