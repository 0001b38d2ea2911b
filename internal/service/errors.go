package service

import "errors"

var (
	// ErrMissingFields rejects submissions without credential material or
	// a stated purpose.
	ErrMissingFields = errors.New("missing required fields: public_key, purpose")

	// ErrNotFound covers both unknown and expired auth requests; callers
	// cannot tell the two apart.
	ErrNotFound = errors.New("auth request not found or expired")

	// Bearer validation failures. The error text doubles as the reason
	// tag in 401 responses and unauthorized-request analytics.
	ErrMissingBearer = errors.New("missing_bearer_token")
	ErrInvalidToken  = errors.New("invalid_token")
)
