package model

import "time"

const (
	CalendarActionUpsert = "upsert"
	CalendarActionDelete = "delete"

	CalendarSourceAppointment = "appointment"
	CalendarSourceException   = "schedule_exception"

	CalendarPrivacyPublic  = "public"
	CalendarPrivacyPrivate = "private"
)

// CalendarEvent is the message emitted after a booking state change.
type CalendarEvent struct {
	EventID    string    `json:"event_id" validate:"required,uuid"`
	Action     string    `json:"action" validate:"required,oneof=upsert delete"`
	SourceType string    `json:"source_type" validate:"required"`
	SourceID   string    `json:"source_id" validate:"required"`
	Title      string    `json:"title,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	Stop       time.Time `json:"stop,omitempty"`
	PartnerIDs []string  `json:"partner_ids,omitempty"`
	Privacy    string    `json:"privacy,omitempty" validate:"omitempty,oneof=public private"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CalendarEntry is the mirrored calendar record.
type CalendarEntry struct {
	ID          string    `json:"id" bson:"_id"`
	SourceType  string    `json:"source_type" bson:"source_type"`
	SourceID    string    `json:"source_id" bson:"source_id"`
	Title       string    `json:"title" bson:"title"`
	Start       time.Time `json:"start" bson:"start"`
	Stop        time.Time `json:"stop" bson:"stop"`
	PartnerIDs  []string  `json:"partner_ids,omitempty" bson:"partner_ids,omitempty"`
	Privacy     string    `json:"privacy" bson:"privacy"`
	LastEventID string    `json:"last_event_id" bson:"last_event_id"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}
