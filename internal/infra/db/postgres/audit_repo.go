package postgres

import (
	"context"

	"jpk2json-service/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"
)

var _ repository.AuditSink = (*auditRepo)(nil)

// auditRepo appends historical records to Postgres. Record ids are ULIDs so
// they sort by creation time without a separate index.
type auditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) repository.AuditSink {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) RecordConversion(ctx context.Context, rec repository.ConversionRecord) error {
	const q = `
INSERT INTO conversion_logs
    (id, job_id, user_email, client_ip, input_filename, input_file_size,
     output_file_size, status, error_message, processing_time_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, q,
		ulid.Make().String(), rec.JobID, rec.Identity, rec.ClientIP,
		rec.InputFilename, rec.InputSize, rec.OutputSize,
		rec.Status, rec.ErrorDetail, rec.Duration.Milliseconds())
	return err
}

func (r *auditRepo) RecordLogin(ctx context.Context, rec repository.LoginRecord) error {
	const q = `
INSERT INTO login_logs (id, user_email, client_ip, login_method, success, error_message, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, q,
		ulid.Make().String(), rec.Identity, rec.ClientIP,
		rec.Method, rec.Success, rec.ErrorDetail, rec.UserAgent)
	return err
}

func (r *auditRepo) RecordRateLimit(ctx context.Context, identity, operation, clientIP string) error {
	const q = `
INSERT INTO rate_limit_logs (id, user_email, endpoint, client_ip)
VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, q, ulid.Make().String(), identity, operation, clientIP)
	return err
}

func (r *auditRepo) RecordBlocked(ctx context.Context, clientIP, path string) error {
	const q = `
INSERT INTO blocked_request_logs (id, client_ip, path)
VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, q, ulid.Make().String(), clientIP, path)
	return err
}
