package auth

import (
	"context"
	"strings"

	"jpk2json-service/internal/domain/ports/adapter"
)

var _ adapter.Approver = (*StaticApprover)(nil)

// StaticApprover approves the identities listed in the config file.
// Matching is case-insensitive since identities are email addresses.
type StaticApprover struct {
	approved map[string]struct{}
}

func NewStaticApprover(identities []string) *StaticApprover {
	m := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		m[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}
	return &StaticApprover{approved: m}
}

func (a *StaticApprover) Approved(ctx context.Context, identity string) (bool, error) {
	_, ok := a.approved[strings.ToLower(strings.TrimSpace(identity))]
	return ok, nil
}
