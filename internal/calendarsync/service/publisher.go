package service

import (
	"context"
	"medsched/pkg/kafka"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePrefix = "calendar."
	SchemaVersion   = "1"
)

// Publisher emits calendar events after a state change has been stored.
type Publisher interface {
	Publish(ctx context.Context, event *model.CalendarEvent) error
}

type MessageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer MessageProducer
	source   string
	log      *logger.Logger
}

// NewKafkaPublisher keys each message by source id so updates to one
// appointment stay ordered.
func NewKafkaPublisher(producer MessageProducer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, source: source, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event *model.CalendarEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.SourceType + ":" + event.SourceID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(EventTypePrefix + event.Action).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return err
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish calendar event",
			"event_id", event.EventID,
			"action", event.Action,
			"source_type", event.SourceType,
			"source_id", event.SourceID,
			"error", err,
		)
		return err
	}
	return nil
}

type noopPublisher struct {
	log *logger.Logger
}

// NewNoopPublisher is used when calendar sync is disabled.
func NewNoopPublisher(log *logger.Logger) Publisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) Publish(_ context.Context, event *model.CalendarEvent) error {
	p.log.Debug("Calendar sync disabled, dropping event", "action", event.Action, "source_id", event.SourceID)
	return nil
}

// UpsertEvent describes a calendar entry that should exist.
func UpsertEvent(sourceType, sourceID, title string, start, stop time.Time, partnerIDs []string, privacy string) *model.CalendarEvent {
	return &model.CalendarEvent{
		EventID:    uuid.NewString(),
		Action:     model.CalendarActionUpsert,
		SourceType: sourceType,
		SourceID:   sourceID,
		Title:      title,
		Start:      start.UTC(),
		Stop:       stop.UTC(),
		PartnerIDs: partnerIDs,
		Privacy:    privacy,
		OccurredAt: time.Now().UTC(),
	}
}

func DeleteEvent(sourceType, sourceID string) *model.CalendarEvent {
	return &model.CalendarEvent{
		EventID:    uuid.NewString(),
		Action:     model.CalendarActionDelete,
		SourceType: sourceType,
		SourceID:   sourceID,
		OccurredAt: time.Now().UTC(),
	}
}
