package model

import (
	"medsched/pkg/interval"
	"time"
)

// ScheduleException blocks a practitioner for the UTC window [Start, End).
type ScheduleException struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PractitionerID string    `json:"practitioner_id" bson:"practitioner_id" validate:"required,mongodb"`
	CompanyID      string    `json:"company_id" bson:"company_id" validate:"omitempty,max=64"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Reason         string    `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=500"`
	Start          time.Time `json:"start" bson:"start" validate:"required"`
	End            time.Time `json:"end" bson:"end" validate:"required"`
	Active         bool      `json:"active" bson:"active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

type ExceptionUpdate struct {
	Name   *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Reason *string    `json:"reason,omitempty" validate:"omitempty,max=500"`
	Start  *time.Time `json:"start,omitempty" validate:"omitempty"`
	End    *time.Time `json:"end,omitempty" validate:"omitempty"`
}

func (e *ScheduleException) Interval() interval.Interval {
	return interval.New(e.Start, e.End, "exception:"+e.ID)
}
