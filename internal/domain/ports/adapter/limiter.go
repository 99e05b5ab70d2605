package adapter

import "context"

// RateLimiter bounds request frequency per (identity, operation) pair over a
// sliding window. Allow records the request as a side effect when admitted;
// a rejected request must not consume any budget.
type RateLimiter interface {
	Allow(ctx context.Context, identity, operation string) (bool, error)
}
