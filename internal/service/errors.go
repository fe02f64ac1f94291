package service

import "errors"

var (
	// ErrValidation covers bad enums and empty recipient lists. Raised
	// before any persistence or scheduling side effect.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the requester is neither the schedule's
	// creator nor an administrator.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("schedule not found")
)
