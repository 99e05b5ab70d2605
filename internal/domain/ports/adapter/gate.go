package adapter

import "context"

// AccessGate evaluates a request origin against the blocked address list.
// It runs before authentication and rate limiting on every protected route.
type AccessGate interface {
	IsBlocked(ctx context.Context, addr string) bool
	Add(ctx context.Context, entry string) error
	Remove(ctx context.Context, entry string) error
	Reload(ctx context.Context) error
	List(ctx context.Context) []string
}
