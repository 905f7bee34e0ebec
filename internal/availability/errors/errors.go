package errors

import "errors"

var (
	ErrNoSchedule = errors.New("no active schedule covers the requested dates")

	ErrInvalidRange = errors.New("range start must be before its end")
)
