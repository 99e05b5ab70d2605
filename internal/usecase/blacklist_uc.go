package usecase

import (
	"context"

	"jpk2json-service/internal/domain/ports/adapter"
)

// BlacklistUseCase exposes the access-control admin operations.
type BlacklistUseCase interface {
	List(ctx context.Context) []string
	Add(ctx context.Context, entry string) error
	Remove(ctx context.Context, entry string) error
	Reload(ctx context.Context) error
}

type blacklistUC struct {
	gate adapter.AccessGate
}

var _ BlacklistUseCase = (*blacklistUC)(nil)

func NewBlacklistUseCase(gate adapter.AccessGate) BlacklistUseCase {
	return &blacklistUC{gate: gate}
}

func (u *blacklistUC) List(ctx context.Context) []string { return u.gate.List(ctx) }

func (u *blacklistUC) Add(ctx context.Context, entry string) error { return u.gate.Add(ctx, entry) }

func (u *blacklistUC) Remove(ctx context.Context, entry string) error {
	return u.gate.Remove(ctx, entry)
}

func (u *blacklistUC) Reload(ctx context.Context) error { return u.gate.Reload(ctx) }
