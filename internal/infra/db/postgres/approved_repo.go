package postgres

import (
	"context"
	"errors"
	"strings"

	"jpk2json-service/internal/domain/ports/adapter"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ adapter.Approver = (*approvedRepo)(nil)

// approvedRepo answers approval checks from the approved_identities table.
type approvedRepo struct {
	pool *pgxpool.Pool
}

func NewApprovedRepo(pool *pgxpool.Pool) adapter.Approver {
	return &approvedRepo{pool: pool}
}

func (r *approvedRepo) Approved(ctx context.Context, identity string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM approved_identities WHERE lower(email) = $1)`
	var exists bool
	row := r.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(identity)))
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}
