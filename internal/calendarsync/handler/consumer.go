package handler

import (
	"context"
	"errors"
	calendarerrors "medsched/internal/calendarsync/errors"
	"medsched/internal/calendarsync/service"
	"medsched/pkg/kafka"
	"medsched/pkg/logger"
	"medsched/pkg/model"
)

type EventHandler struct {
	mirror service.Mirror
	log    *logger.Logger
}

func NewEventHandler(mirror service.Mirror, log *logger.Logger) *EventHandler {
	return &EventHandler{mirror: mirror, log: log}
}

// Handle is the kafka.MessageHandler for the calendar sync topic. Bad
// payloads are permanent failures; store errors are retried.
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.CalendarEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}

	err := h.mirror.Apply(ctx, &event)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, calendarerrors.ErrStaleEvent):
		h.log.Warn("Dropping stale calendar event", "event_id", event.EventID, "source_id", event.SourceID)
		return nil
	case errors.Is(err, calendarerrors.ErrInvalidEvent):
		return kafka.NewPermanentError("invalid calendar event", err)
	default:
		return kafka.NewTransientError("calendar store failure", err)
	}
}
