package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidUser  = errors.New("user id is required")
	ErrInvalidRange = errors.New("range end is before start")
	ErrClosed       = errors.New("store is closed")
)
