package seed

import "errors"

var (
	ErrMissingBaseURL = errors.New("base url is required")
	ErrUnhealthy      = errors.New("service is not healthy")
	ErrUnexpectedCode = errors.New("unexpected status code")
)
