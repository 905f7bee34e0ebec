package validator

import (
	"errors"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
)

type EventValidator struct {
	v *validation.Validator
}

func NewEventValidator(log *logger.Logger) *EventValidator {
	return &EventValidator{v: validation.New(log, nil, nil)}
}

// Validate requires an ordered time range on upserts; deletes only need the
// source reference.
func (ev *EventValidator) Validate(event *model.CalendarEvent) error {
	var errs validation.ValidationErrors
	if err := ev.v.Struct(event); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if event.Action == model.CalendarActionUpsert {
		if event.Start.IsZero() || event.Stop.IsZero() {
			errs = append(errs, validation.ValidationError{Field: "start", Message: "start and stop are required for upserts"})
		} else if !event.Stop.After(event.Start) {
			errs = append(errs, validation.ValidationError{Field: "stop", Message: "stop must be after start"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
