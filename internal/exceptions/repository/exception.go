package repository

import (
	"context"
	"errors"
	"fmt"
	exceptionerrors "medsched/internal/exceptions/errors"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	"medsched/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Schedule_exceptions"
)

type ExceptionRepository interface {
	Create(ctx context.Context, ex *model.ScheduleException) error
	FindByID(ctx context.Context, id string) (*model.ScheduleException, error)
	FindByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.ScheduleException, error)
	CountByPractitioner(ctx context.Context, practitionerID string) (int64, error)
	// FindActiveOverlapping returns active exceptions intersecting [start, end),
	// ordered by start. Touching windows do not overlap.
	FindActiveOverlapping(ctx context.Context, practitionerID, companyID string, start, end time.Time) ([]*model.ScheduleException, error)
	// FindConflicts is FindActiveOverlapping minus the exception excludeID.
	FindConflicts(ctx context.Context, practitionerID, companyID string, start, end time.Time, excludeID string) ([]*model.ScheduleException, error)
	Update(ctx context.Context, ex *model.ScheduleException) error
	SetActive(ctx context.Context, id string, active bool) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoExceptionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoExceptionRepository(cfg *config.Config) ExceptionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoExceptionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoExceptionRepository) Create(ctx context.Context, ex *model.ScheduleException) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ex.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, ex)
	if err != nil {
		return fmt.Errorf("failed to create schedule exception: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		ex.ID = oid.Hex()
	}
	return nil
}

func (r *mongoExceptionRepository) FindByID(ctx context.Context, id string) (*model.ScheduleException, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", exceptionerrors.ErrInvalidID, id)
	}

	var ex model.ScheduleException
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&ex); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", exceptionerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find schedule exception: %w", err)
	}
	return &ex, nil
}

func (r *mongoExceptionRepository) FindByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.ScheduleException, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start", Value: -1}})

	return r.find(ctx, bson.M{"practitioner_id": practitionerID}, opts)
}

func (r *mongoExceptionRepository) CountByPractitioner(ctx context.Context, practitionerID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"practitioner_id": practitionerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count schedule exceptions: %w", err)
	}
	return count, nil
}

func (r *mongoExceptionRepository) FindActiveOverlapping(ctx context.Context, practitionerID, companyID string, start, end time.Time) ([]*model.ScheduleException, error) {
	return r.FindConflicts(ctx, practitionerID, companyID, start, end, "")
}

func (r *mongoExceptionRepository) FindConflicts(ctx context.Context, practitionerID, companyID string, start, end time.Time, excludeID string) ([]*model.ScheduleException, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"practitioner_id": practitionerID,
		"company_id":      companyID,
		"active":          true,
		"start":           bson.M{"$lt": end.UTC()},
		"end":             bson.M{"$gt": start.UTC()},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", exceptionerrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *mongoExceptionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.ScheduleException, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule exceptions: %w", err)
	}
	defer cursor.Close(ctx)

	var exceptions []*model.ScheduleException
	if err = cursor.All(ctx, &exceptions); err != nil {
		return nil, fmt.Errorf("failed to decode schedule exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *mongoExceptionRepository) Update(ctx context.Context, ex *model.ScheduleException) error {
	return r.updateOne(ctx, ex.ID, bson.M{
		"name":   ex.Name,
		"reason": ex.Reason,
		"start":  ex.Start.UTC(),
		"end":    ex.End.UTC(),
	})
}

func (r *mongoExceptionRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, id, bson.M{"active": active})
}

func (r *mongoExceptionRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", exceptionerrors.ErrInvalidID, id)
	}

	set["updated_at"] = mongotx.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update schedule exception: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", exceptionerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoExceptionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
