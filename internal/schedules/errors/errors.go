package errors

import "errors"

var (
	ErrNotFound = errors.New("schedule not found")

	ErrInvalidID = errors.New("invalid schedule ID format")

	ErrDuplicateStart = errors.New("a schedule already starts on this date")
)
