package errors

import "errors"

var (
	ErrLockHeld = errors.New("lock is held by another owner")

	ErrNotOwner = errors.New("lock not owned by this token")
)
