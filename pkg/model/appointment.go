package model

import "time"

const (
	AppointmentDraft     = "draft"
	AppointmentConfirmed = "confirmed"
	AppointmentDone      = "done"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PractitionerID  string    `json:"practitioner_id" bson:"practitioner_id" validate:"required,mongodb"`
	PatientID       string    `json:"patient_id" bson:"patient_id" validate:"required,min=1,max=64"`
	Start           time.Time `json:"start" bson:"start" validate:"required"`
	DurationHours   float64   `json:"duration_hours" bson:"duration_hours" validate:"gt=0,lte=24"`
	End             time.Time `json:"end" bson:"end" validate:"omitempty"`
	State           string    `json:"state" bson:"state" validate:"required,oneof=draft confirmed done cancelled"`
	Notes           string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`
	DisplayTimeZone string    `json:"display_time_zone,omitempty" bson:"display_time_zone,omitempty" validate:"omitempty,timezone"`
	CompanyID       string    `json:"company_id,omitempty" bson:"company_id,omitempty" validate:"omitempty,max=64"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

type AppointmentReschedule struct {
	PractitionerID  *string    `json:"practitioner_id,omitempty" validate:"omitempty,mongodb"`
	Start           *time.Time `json:"start,omitempty" validate:"omitempty"`
	DurationHours   *float64   `json:"duration_hours,omitempty" validate:"omitempty,gt=0,lte=24"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DisplayTimeZone *string    `json:"display_time_zone,omitempty" validate:"omitempty,timezone"`
}

// Live reports whether the appointment still occupies its slot.
func (a *Appointment) Live() bool {
	return a.State == AppointmentDraft || a.State == AppointmentConfirmed
}

// NeedsAvailabilityCheck reports whether slot changes must be validated.
func (a *Appointment) NeedsAvailabilityCheck() bool {
	return a.State != AppointmentCancelled && a.State != AppointmentDone
}
