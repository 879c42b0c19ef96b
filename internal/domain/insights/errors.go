package insights

import "errors"

// Sentinel errors returned by the composer. Insufficient data is never an
// error; it shows up as empty or zero-confidence results instead.
var (
	ErrNilSource     = errors.New("insights: data source is nil")
	ErrInvalidUser   = errors.New("insights: user id is required")
	ErrInvalidWindow = errors.New("insights: window end must be after start")
)
