package model

import "time"

// Lock is an advisory lock document. The TTL index on ExpiresAt reclaims
// locks whose holder died.
type Lock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
