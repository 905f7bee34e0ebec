package repository

import (
	"context"
	"errors"
	"fmt"
	scheduleerrors "medsched/internal/schedules/errors"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	"medsched/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Schedules"
)

type ScheduleRepository interface {
	Create(ctx context.Context, sc *model.Schedule) error
	FindByID(ctx context.Context, id string) (*model.Schedule, error)
	FindByStart(ctx context.Context, practitionerID, companyID string, dateFrom model.Date) (*model.Schedule, error)
	FindByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, error)
	CountByPractitioner(ctx context.Context, practitionerID string) (int64, error)
	// FindActiveCovering returns the active schedules whose validity window
	// intersects [from, to], latest date_from first.
	FindActiveCovering(ctx context.Context, practitionerID string, from, to model.Date) ([]*model.Schedule, error)
	UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoScheduleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoScheduleRepository(cfg *config.Config) ScheduleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoScheduleRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoScheduleRepository) Create(ctx context.Context, sc *model.Schedule) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sc.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, sc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", scheduleerrors.ErrDuplicateStart, sc.DateFrom)
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		sc.ID = oid.Hex()
	}
	return nil
}

func (r *mongoScheduleRepository) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	var sc model.Schedule
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&sc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find schedule: %w", err)
	}
	return &sc, nil
}

func (r *mongoScheduleRepository) FindByStart(ctx context.Context, practitionerID, companyID string, dateFrom model.Date) (*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"practitioner_id": practitionerID,
		"company_id":      companyID,
		"date_from":       dateFrom,
	}

	var sc model.Schedule
	if err := r.collection.FindOne(ctx, filter).Decode(&sc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find schedule by start: %w", err)
	}
	return &sc, nil
}

func (r *mongoScheduleRepository) FindByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "date_from", Value: -1}})

	return r.find(ctx, bson.M{"practitioner_id": practitionerID}, opts)
}

func (r *mongoScheduleRepository) CountByPractitioner(ctx context.Context, practitionerID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"practitioner_id": practitionerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count schedules: %w", err)
	}
	return count, nil
}

func (r *mongoScheduleRepository) FindActiveCovering(ctx context.Context, practitionerID string, from, to model.Date) ([]*model.Schedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"practitioner_id": practitionerID,
		"active":          true,
		"date_from":       bson.M{"$lte": to},
		"$or": bson.A{
			bson.M{"date_to": bson.M{"$exists": false}},
			bson.M{"date_to": nil},
			bson.M{"date_to": bson.M{"$gte": from}},
		},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "date_from", Value: -1},
		{Key: "created_at", Value: -1},
	})

	return r.find(ctx, filter, opts)
}

func (r *mongoScheduleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Schedule, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []*model.Schedule
	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}
	return schedules, nil
}

func (r *mongoScheduleRepository) UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) error {
	return r.updateOne(ctx, id, bson.M{"rules": rules})
}

func (r *mongoScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, id, bson.M{"active": active})
}

func (r *mongoScheduleRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	set["updated_at"] = mongotx.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoScheduleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoScheduleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
