package mongo

import (
	"context"
	"fmt"
	appointmentsrepo "medsched/internal/appointments/repository"
	calendarrepo "medsched/internal/calendarsync/repository"
	exceptionsrepo "medsched/internal/exceptions/repository"
	locksrepo "medsched/internal/locks/repository"
	"medsched/internal/migrations/mongo/validators"
	practitionersrepo "medsched/internal/practitioners/repository"
	schedulesrepo "medsched/internal/schedules/repository"
	"medsched/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	PractitionersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}}},
	}

	// One schedule per practitioner, company and start date.
	SchedulesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "practitioner_id", Value: 1},
				{Key: "company_id", Value: 1},
				{Key: "date_from", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "practitioner_id", Value: 1},
			{Key: "active", Value: 1},
			{Key: "date_from", Value: -1},
		}},
	}

	ExceptionsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "practitioner_id", Value: 1},
			{Key: "company_id", Value: 1},
			{Key: "active", Value: 1},
			{Key: "start", Value: 1},
			{Key: "end", Value: 1},
		}},
	}

	AppointmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "practitioner_id", Value: 1},
			{Key: "state", Value: 1},
			{Key: "start", Value: 1},
			{Key: "end", Value: 1},
		}},
		{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "start", Value: 1}}},
	}

	LocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	CalendarEventsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_type", Value: 1}, {Key: "source_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
)

type CollectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() []CollectionDef {
	return []CollectionDef{
		{Name: practitionersrepo.CollectionName, Indexes: PractitionersIndexes, Validator: validators.PractitionerValidator},
		{Name: schedulesrepo.CollectionName, Indexes: SchedulesIndexes, Validator: validators.ScheduleValidator},
		{Name: exceptionsrepo.CollectionName, Indexes: ExceptionsIndexes, Validator: validators.ExceptionValidator},
		{Name: appointmentsrepo.CollectionName, Indexes: AppointmentsIndexes, Validator: validators.AppointmentValidator},
		{Name: locksrepo.CollectionName, Indexes: LocksIndexes},
		{Name: calendarrepo.CollectionName, Indexes: CalendarEventsIndexes},
	}
}

// RunMigration creates missing collections, refreshes their JSON schema
// validators and ensures indexes. It is safe to run repeatedly.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
		log.Info("Collection migrated", "collection", def.Name, "indexes", len(def.Indexes))
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	return err
}
