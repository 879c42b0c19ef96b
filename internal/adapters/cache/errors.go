package cache

import "errors"

// Sentinel errors for cache backends.
var (
	ErrInvalidTTL      = errors.New("cache: ttl must be positive")
	ErrMissingAddress  = errors.New("cache: redis address is required")
	ErrRedisConnection = errors.New("cache: redis connection failed")
)
