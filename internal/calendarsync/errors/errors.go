package errors

import "errors"

var (
	ErrNotFound = errors.New("calendar entry not found")

	ErrInvalidEvent = errors.New("invalid calendar event")

	ErrStaleEvent = errors.New("calendar event older than mirrored entry")
)
