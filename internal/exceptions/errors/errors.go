package errors

import "errors"

var (
	ErrNotFound = errors.New("schedule exception not found")

	ErrInvalidID = errors.New("invalid schedule exception ID")

	ErrOverlap = errors.New("schedule exception overlaps an active exception")
)
