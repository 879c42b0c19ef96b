package model

import "errors"

// Validation errors for records entering the engine.
var (
	ErrInvalidCycle  = errors.New("invalid cycle record")
	ErrInvalidSample = errors.New("invalid biometric sample")
)
