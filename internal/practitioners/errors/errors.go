package errors

import "errors"

var (
	ErrNotFound = errors.New("practitioner not found")

	ErrInvalidID = errors.New("invalid practitioner ID format")
)
