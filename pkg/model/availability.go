package model

import (
	"medsched/pkg/interval"
	"slices"
	"time"
)

const (
	RejectNoSchedule      = "no_schedule"
	RejectSlotUnavailable = "slot_unavailable"
)

// AvailabilitySet is the bookable time of one practitioner over [Start, End).
type AvailabilitySet struct {
	PractitionerID string       `json:"practitioner_id"`
	Start          time.Time    `json:"start"`
	End            time.Time    `json:"end"`
	TimeZone       string       `json:"time_zone"`
	Intervals      interval.Set `json:"intervals"`
	ScheduleIDs    []string     `json:"schedule_ids,omitempty"`
	// CoveredDates lists the practitioner-local dates an active schedule applies to.
	CoveredDates []Date `json:"covered_dates,omitempty"`
}

func (a *AvailabilitySet) CoversDate(d time.Time) bool {
	day := DateOf(d)
	return slices.ContainsFunc(a.CoveredDates, func(c Date) bool { return c.Equal(day.Time) })
}

type SlotRequest struct {
	PractitionerID  string    `json:"practitioner_id" validate:"required,mongodb"`
	Start           time.Time `json:"start" validate:"required"`
	DurationHours   float64   `json:"duration_hours" validate:"gt=0,lte=24"`
	DisplayTimeZone string    `json:"display_time_zone,omitempty" validate:"omitempty,timezone"`
}

type Suggestion struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// SlotDecision is the outcome of validating a slot: accepted, or rejected
// with a Code of RejectNoSchedule or RejectSlotUnavailable.
type SlotDecision struct {
	Accepted    bool         `json:"accepted"`
	Code        string       `json:"code,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}
