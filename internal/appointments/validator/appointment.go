package validator

import (
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
)

type AppointmentValidator struct {
	v *validation.Validator
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	return &AppointmentValidator{
		v: validation.New(log, nil, map[string]string{
			"oneof": "must be one of draft, confirmed, done, cancelled",
		}),
	}
}

func (av *AppointmentValidator) Validate(appt *model.Appointment) error {
	return av.v.Struct(appt)
}

func (av *AppointmentValidator) ValidateReschedule(change *model.AppointmentReschedule) error {
	return av.v.Struct(change)
}
