package registry

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/domain/ports/repository"
)

const shardCount = 32

var _ repository.JobRegistry = (*Registry)(nil)

// Registry is the in-memory job registry. Jobs are spread over a fixed set
// of shards so mutations on unrelated ids never contend on one lock, while
// everything touching a single id serializes through its shard.
//
// A deleted id leaves a tombstone behind. A worker that finishes after the
// client cleaned the job up will find the tombstone and no-op instead of
// re-inserting the entry under a dead id.
type Registry struct {
	shards [shardCount]*shard
}

type shard struct {
	mu     sync.RWMutex
	jobs   map[string]*model.ConversionJob
	buried map[string]struct{}
}

func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{
			jobs:   make(map[string]*model.ConversionJob),
			buried: make(map[string]struct{}),
		}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return r.shards[h.Sum32()%shardCount]
}

func (r *Registry) Create(ctx context.Context, job *model.ConversionJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	s := r.shardFor(job.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate job id %s: %w", job.ID, domain.ErrInternal)
	}
	if _, ok := s.buried[job.ID]; ok {
		return fmt.Errorf("job id %s was already used: %w", job.ID, domain.ErrInternal)
	}
	cp := *job
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.jobs[job.ID] = &cp
	return nil
}

func (r *Registry) Get(ctx context.Context, jobID string) (*model.ConversionJob, error) {
	s := r.shardFor(jobID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

// Update runs mutate on a scratch copy under the shard lock, then commits it
// only if the result does not move the job backward: a terminal job stays
// frozen and progress never decreases.
func (r *Registry) Update(ctx context.Context, jobID string, mutate func(*model.ConversionJob)) error {
	s := r.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[jobID]
	if !ok {
		// Tombstoned or never existed; a stale worker write lands here.
		return domain.ErrNotFound
	}
	if cur.Status.Terminal() {
		return nil
	}
	next := *cur
	mutate(&next)
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	if next.Progress < cur.Progress {
		next.Progress = cur.Progress
	}
	s.jobs[jobID] = &next
	return nil
}

func (r *Registry) Delete(ctx context.Context, jobID string) error {
	s := r.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.jobs, jobID)
	s.buried[jobID] = struct{}{}
	return nil
}

func (r *Registry) Snapshot(ctx context.Context) []model.ConversionJob {
	out := make([]model.ConversionJob, 0, r.Len())
	for _, s := range r.shards {
		s.mu.RLock()
		for _, j := range s.jobs {
			out = append(out, *j)
		}
		s.mu.RUnlock()
	}
	return out
}

func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.jobs)
		s.mu.RUnlock()
	}
	return n
}
