package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("job not found")
	ErrNotReady        = errors.New("conversion not completed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("entry already exists")
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotApproved     = errors.New("identity not approved")
	ErrAccessDenied    = errors.New("origin address is blocked")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrQueueFull       = errors.New("conversion queue saturated")
	ErrInternal        = errors.New("internal error")
)
