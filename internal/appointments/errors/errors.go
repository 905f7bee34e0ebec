package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	ErrInvalidTransition = errors.New("appointment state does not allow this transition")
)
