package model

import "time"

type Practitioner struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	TimeZone  string    `json:"time_zone,omitempty" bson:"time_zone,omitempty" validate:"omitempty,timezone"`
	CompanyID string    `json:"company_id,omitempty" bson:"company_id" validate:"omitempty,max=64"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
