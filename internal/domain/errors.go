package domain

import "errors"

// Error kinds surfaced to the shopper. Concrete errors wrap one of these.
var (
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrTimeout            = errors.New("request timed out")
	ErrInvalidResponse    = errors.New("invalid response")
	ErrUnauthenticated    = errors.New("not logged in")
	ErrValidation         = errors.New("validation error")
)
