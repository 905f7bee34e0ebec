package service

import (
	"context"
	"errors"
	"fmt"
	calendarerrors "medsched/internal/calendarsync/errors"
	"medsched/internal/calendarsync/repository"
	"medsched/internal/calendarsync/validator"
	"medsched/pkg/logger"
	"medsched/pkg/model"

	"github.com/google/uuid"
)

// Mirror applies calendar events to the local calendar collection.
type Mirror interface {
	Apply(ctx context.Context, event *model.CalendarEvent) error
}

type mirror struct {
	repo      repository.CalendarRepository
	validator *validator.EventValidator
	log       *logger.Logger
}

func NewMirror(repo repository.CalendarRepository, validator *validator.EventValidator, log *logger.Logger) Mirror {
	return &mirror{repo: repo, validator: validator, log: log}
}

// Apply is idempotent. Redelivered or out-of-order events older than the
// mirrored entry are dropped with ErrStaleEvent.
func (m *mirror) Apply(ctx context.Context, event *model.CalendarEvent) error {
	if err := m.validator.Validate(event); err != nil {
		return fmt.Errorf("%w: %v", calendarerrors.ErrInvalidEvent, err)
	}

	existing, err := m.repo.FindBySource(ctx, event.SourceType, event.SourceID)
	if err != nil && !errors.Is(err, calendarerrors.ErrNotFound) {
		return err
	}

	if existing != nil && existing.LastEventID == event.EventID {
		m.log.Debug("Calendar event already applied", "event_id", event.EventID)
		return nil
	}
	if existing != nil && existing.UpdatedAt.After(event.OccurredAt) {
		return fmt.Errorf("%w: %s", calendarerrors.ErrStaleEvent, event.EventID)
	}

	switch event.Action {
	case model.CalendarActionDelete:
		if existing == nil {
			return nil
		}
		if err := m.repo.DeleteBySource(ctx, event.SourceType, event.SourceID); err != nil && !errors.Is(err, calendarerrors.ErrNotFound) {
			return err
		}
		m.log.Info("Calendar entry removed", "source_type", event.SourceType, "source_id", event.SourceID)
		return nil

	default:
		entry := &model.CalendarEntry{
			ID:          uuid.NewString(),
			SourceType:  event.SourceType,
			SourceID:    event.SourceID,
			Title:       event.Title,
			Start:       event.Start,
			Stop:        event.Stop,
			PartnerIDs:  event.PartnerIDs,
			Privacy:     event.Privacy,
			LastEventID: event.EventID,
			UpdatedAt:   event.OccurredAt,
		}
		if existing != nil {
			entry.ID = existing.ID
		}
		if entry.Privacy == "" {
			entry.Privacy = model.CalendarPrivacyPrivate
		}
		if err := m.repo.Upsert(ctx, entry); err != nil {
			return err
		}
		m.log.Info("Calendar entry mirrored",
			"source_type", event.SourceType,
			"source_id", event.SourceID,
			"start", event.Start,
			"stop", event.Stop,
		)
		return nil
	}
}
