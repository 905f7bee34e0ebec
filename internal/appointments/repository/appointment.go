package repository

import (
	"context"
	"errors"
	"fmt"
	appointmenterrors "medsched/internal/appointments/errors"
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
	CollectionName = "Appointments"
)

var liveStates = []string{model.AppointmentDraft, model.AppointmentConfirmed}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	// FindByPractitioner lists appointments ordered by start. A nil bound is open.
	FindByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time, limit int, offset int64) ([]*model.Appointment, error)
	CountByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time) (int64, error)
	// FindLiveOverlapping returns draft or confirmed appointments of the
	// practitioner intersecting [start, end), except excludeID.
	FindLiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]*model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error
	SetState(ctx context.Context, id, state string) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	appt.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, appt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appt.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	var appt model.Appointment
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &appt, nil
}

func (r *mongoAppointmentRepository) FindByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start", Value: 1}})

	return r.find(ctx, rangeFilter(practitionerID, start, end), opts)
}

func (r *mongoAppointmentRepository) CountByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, rangeFilter(practitionerID, start, end))
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (r *mongoAppointmentRepository) FindLiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"practitioner_id": practitionerID,
		"state":           bson.M{"$in": liveStates},
		"start":           bson.M{"$lt": end.UTC()},
		"end":             bson.M{"$gt": start.UTC()},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
}

func (r *mongoAppointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	return r.updateOne(ctx, appt.ID, bson.M{
		"practitioner_id":   appt.PractitionerID,
		"start":             appt.Start.UTC(),
		"duration_hours":    appt.DurationHours,
		"end":               appt.End.UTC(),
		"state":             appt.State,
		"notes":             appt.Notes,
		"display_time_zone": appt.DisplayTimeZone,
	})
}

func (r *mongoAppointmentRepository) SetState(ctx context.Context, id, state string) error {
	return r.updateOne(ctx, id, bson.M{"state": state})
}

func (r *mongoAppointmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoAppointmentRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	set["updated_at"] = mongotx.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoAppointmentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Appointment, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func rangeFilter(practitionerID string, start, end *time.Time) bson.M {
	filter := bson.M{"practitioner_id": practitionerID}
	if end != nil {
		filter["start"] = bson.M{"$lt": end.UTC()}
	}
	if start != nil {
		filter["end"] = bson.M{"$gt": start.UTC()}
	}
	return filter
}
