package repository

import (
	"context"
	"errors"
	"fmt"
	calendarerrors "medsched/internal/calendarsync/errors"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	"medsched/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Calendar_events"
)

type CalendarRepository interface {
	FindBySource(ctx context.Context, sourceType, sourceID string) (*model.CalendarEntry, error)
	Upsert(ctx context.Context, entry *model.CalendarEntry) error
	DeleteBySource(ctx context.Context, sourceType, sourceID string) error
}

type mongoCalendarRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCalendarRepository(cfg *config.Config) CalendarRepository {
	return &mongoCalendarRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func sourceFilter(sourceType, sourceID string) bson.M {
	return bson.M{"source_type": sourceType, "source_id": sourceID}
}

func (r *mongoCalendarRepository) FindBySource(ctx context.Context, sourceType, sourceID string) (*model.CalendarEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.CalendarEntry
	if err := r.collection.FindOne(ctx, sourceFilter(sourceType, sourceID)).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", calendarerrors.ErrNotFound, sourceType, sourceID)
		}
		return nil, fmt.Errorf("failed to find calendar entry: %w", err)
	}
	return &entry, nil
}

// Upsert replaces the entry for the source, keeping its mirror id stable.
func (r *mongoCalendarRepository) Upsert(ctx context.Context, entry *model.CalendarEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"title":         entry.Title,
			"start":         entry.Start,
			"stop":          entry.Stop,
			"partner_ids":   entry.PartnerIDs,
			"privacy":       entry.Privacy,
			"last_event_id": entry.LastEventID,
			"updated_at":    entry.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": entry.ID},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, sourceFilter(entry.SourceType, entry.SourceID), update, opts); err != nil {
		return fmt.Errorf("failed to upsert calendar entry: %w", err)
	}
	return nil
}

func (r *mongoCalendarRepository) DeleteBySource(ctx context.Context, sourceType, sourceID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, sourceFilter(sourceType, sourceID))
	if err != nil {
		return fmt.Errorf("failed to delete calendar entry: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", calendarerrors.ErrNotFound, sourceType, sourceID)
	}
	return nil
}
