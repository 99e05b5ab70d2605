package adapter

import "context"

// Approver answers whether an authenticated identity may use the converter.
// Identity acquisition itself (the login flow) is external to the core.
type Approver interface {
	Approved(ctx context.Context, identity string) (bool, error)
}
