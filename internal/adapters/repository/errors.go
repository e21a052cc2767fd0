package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrConflict    = errors.New("item version conflict")
	ErrUnavailable = errors.New("item store unavailable")
	ErrInvalidItem = errors.New("invalid item")
)
