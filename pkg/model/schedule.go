package model

import (
	"fmt"
	"medsched/pkg/recurrence"
	"time"
)

// AttendanceRule is a weekly working window. DayOfWeek 0 is Monday; hours
// are fractional local hours (9.5 = 09:30).
type AttendanceRule struct {
	Name          string  `json:"name,omitempty" bson:"name,omitempty" validate:"omitempty,max=100"`
	DayOfWeek     int     `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	HourFrom      float64 `json:"hour_from" bson:"hour_from" validate:"gte=0,lt=24"`
	HourTo        float64 `json:"hour_to" bson:"hour_to" validate:"gt=0,lte=24,gtfield=HourFrom"`
	EffectiveFrom *Date   `json:"effective_from,omitempty" bson:"effective_from,omitempty" validate:"omitempty"`
	EffectiveTo   *Date   `json:"effective_to,omitempty" bson:"effective_to,omitempty" validate:"omitempty"`
}

type Schedule struct {
	ID             string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PractitionerID string           `json:"practitioner_id" bson:"practitioner_id" validate:"required,mongodb"`
	CompanyID      string           `json:"company_id" bson:"company_id" validate:"required,max=64"`
	Name           string           `json:"name" bson:"name" validate:"omitempty,max=200"`
	DateFrom       Date             `json:"date_from" bson:"date_from" validate:"required"`
	DateTo         *Date            `json:"date_to,omitempty" bson:"date_to,omitempty" validate:"omitempty"`
	Rules          []AttendanceRule `json:"rules" bson:"rules" validate:"omitempty,max=64,dive"`
	Active         bool             `json:"active" bson:"active"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time        `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

type ScheduleRulesUpdate struct {
	Rules []AttendanceRule `json:"rules" validate:"omitempty,max=64,dive"`
}

// DisplayName derives the human readable schedule name.
func (s *Schedule) DisplayName(practitionerName string) string {
	name := fmt.Sprintf("Schedule for %s from %s", practitionerName, s.DateFrom)
	if s.DateTo != nil {
		name += fmt.Sprintf(" to %s", *s.DateTo)
	}
	return name
}

// CoversDate reports whether the calendar date d falls inside the validity window.
func (s *Schedule) CoversDate(d time.Time) bool {
	day := DateOf(d)
	if day.Before(s.DateFrom.Time) {
		return false
	}
	return s.DateTo == nil || !day.After(s.DateTo.Time)
}

func (s *Schedule) Window() recurrence.Window {
	w := recurrence.Window{From: s.DateFrom.Time}
	if s.DateTo != nil {
		to := s.DateTo.Time
		w.To = &to
	}
	return w
}

// Source is the provenance tag intervals produced by this schedule carry.
func (s *Schedule) Source() string {
	return "schedule:" + s.ID
}

func (s *Schedule) RecurrenceRules() []recurrence.Rule {
	rules := make([]recurrence.Rule, 0, len(s.Rules))
	for _, r := range s.Rules {
		rr := recurrence.Rule{
			DayOfWeek: r.DayOfWeek,
			StartHour: r.HourFrom,
			EndHour:   r.HourTo,
			Source:    s.Source(),
		}
		if r.EffectiveFrom != nil {
			from := r.EffectiveFrom.Time
			rr.EffectiveFrom = &from
		}
		if r.EffectiveTo != nil {
			to := r.EffectiveTo.Time
			rr.EffectiveTo = &to
		}
		rules = append(rules, rr)
	}
	return rules
}
