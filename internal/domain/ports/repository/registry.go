package repository

import (
	"context"

	"jpk2json-service/internal/domain/model"
)

// JobRegistry is the shared map from job id to job state. Implementations
// must serialize mutations per id and keep unrelated ids independent.
// Deleted ids must never be resurrected by a late worker write.
type JobRegistry interface {
	// Create inserts a new job. Inserting an id that exists (or existed)
	// is an internal error, never a silent overwrite.
	Create(ctx context.Context, job *model.ConversionJob) error
	// Get returns a snapshot copy of the job or domain.ErrNotFound.
	Get(ctx context.Context, jobID string) (*model.ConversionJob, error)
	// Update applies mutate to the job under the per-id lock. Updates to
	// deleted or unknown ids return domain.ErrNotFound; updates that would
	// move a job backward (terminal transition, decreasing progress) are
	// discarded silently.
	Update(ctx context.Context, jobID string, mutate func(*model.ConversionJob)) error
	// Delete removes the entry, leaving a tombstone. Deleting an absent id
	// returns domain.ErrNotFound.
	Delete(ctx context.Context, jobID string) error
	// Snapshot returns copies of all live jobs.
	Snapshot(ctx context.Context) []model.ConversionJob
	// Len is the number of live jobs.
	Len() int
}
