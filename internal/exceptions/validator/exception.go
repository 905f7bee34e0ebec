package validator

import (
	"errors"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
)

// ErrInvalidWindow marks a start that is not strictly before the end.
var ErrInvalidWindow = errors.New("exception start must be before its end")

type ExceptionValidator struct {
	v *validation.Validator
}

func NewExceptionValidator(log *logger.Logger) *ExceptionValidator {
	return &ExceptionValidator{v: validation.New(log, nil, nil)}
}

// Validate returns validation.ValidationErrors for field problems and
// ErrInvalidWindow when the fields are fine but the window is empty or inverted.
func (ev *ExceptionValidator) Validate(ex *model.ScheduleException) error {
	if err := ev.v.Struct(ex); err != nil {
		return err
	}
	if !ex.Start.Before(ex.End) {
		return ErrInvalidWindow
	}
	return nil
}

func (ev *ExceptionValidator) ValidateUpdate(update *model.ExceptionUpdate) error {
	return ev.v.Struct(update)
}
