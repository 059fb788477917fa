package models

import "errors"

var (
	ErrInvalidDateRange  = errors.New("check-out must not be before check-in")
	ErrIncompleteDraft   = errors.New("booking draft is incomplete")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRoom       = errors.New("invalid room")
	ErrMissingGuestName  = errors.New("guest name is required")
)
