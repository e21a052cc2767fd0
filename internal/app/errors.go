package service

import "errors"

// Sentinel error kinds for the service.
var (
	// ErrStopped is returned by work interrupted by Stop.
	ErrStopped = errors.New("service stopped")
)
