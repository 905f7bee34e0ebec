package repository

import (
	"context"
	"errors"
	"fmt"
	practitionererrors "medsched/internal/practitioners/errors"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	"medsched/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Practitioners"

type PractitionerRepository interface {
	Create(ctx context.Context, p *model.Practitioner) error
	FindByID(ctx context.Context, id string) (*model.Practitioner, error)
}

type mongoPractitionerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPractitionerRepository(cfg *config.Config) PractitionerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPractitionerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPractitionerRepository) Create(ctx context.Context, p *model.Practitioner) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	p.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to create practitioner: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPractitionerRepository) FindByID(ctx context.Context, id string) (*model.Practitioner, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", practitionererrors.ErrInvalidID, id)
	}

	var p model.Practitioner
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", practitionererrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find practitioner: %w", err)
	}
	return &p, nil
}
