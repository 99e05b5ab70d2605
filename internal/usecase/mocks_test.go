package usecase

import (
	"context"
	"sync"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/domain/ports/repository"
)

// memGate is a small in-memory access gate used by unit tests.
type memGate struct {
	mu      sync.Mutex
	blocked map[string]bool
	checks  int
}

func newMemGate(blocked ...string) *memGate {
	m := make(map[string]bool, len(blocked))
	for _, b := range blocked {
		m[b] = true
	}
	return &memGate{blocked: m}
}

func (g *memGate) IsBlocked(ctx context.Context, addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	return g.blocked[addr]
}

func (g *memGate) Add(ctx context.Context, entry string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.blocked[entry] {
		return domain.ErrAlreadyExists
	}
	g.blocked[entry] = true
	return nil
}

func (g *memGate) Remove(ctx context.Context, entry string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.blocked[entry] {
		return domain.ErrNotFound
	}
	delete(g.blocked, entry)
	return nil
}

func (g *memGate) Reload(ctx context.Context) error { return nil }

func (g *memGate) List(ctx context.Context) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.blocked))
	for e := range g.blocked {
		out = append(out, e)
	}
	return out
}

// memApprover approves a fixed identity set.
type memApprover struct {
	approved map[string]bool
	err      error
}

func newMemApprover(ids ...string) *memApprover {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return &memApprover{approved: m}
}

func (a *memApprover) Approved(ctx context.Context, identity string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.approved[identity], nil
}

// memLimiter counts Allow calls per key and rejects above the limit.
type memLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
}

func newMemLimiter(limit int) *memLimiter {
	return &memLimiter{limit: limit, seen: map[string]int{}}
}

func (l *memLimiter) Allow(ctx context.Context, identity, operation string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := identity + "/" + operation
	if l.seen[key] >= l.limit {
		return false, nil
	}
	l.seen[key]++
	return true, nil
}

func (l *memLimiter) count(identity, operation string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[identity+"/"+operation]
}

// memQueue records submitted tasks; optionally rejects everything.
type memQueue struct {
	mu    sync.Mutex
	tasks []model.ConversionTask
	full  bool
	size  int
}

func newMemQueue() *memQueue { return &memQueue{size: 4} }

func (q *memQueue) Submit(task model.ConversionTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return domain.ErrQueueFull
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) Size() int { return q.size }

func (q *memQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// memAuditSink records every audit write.
type memAuditSink struct {
	mu          sync.Mutex
	conversions []repository.ConversionRecord
	logins      []repository.LoginRecord
	rateLimits  int
	blocked     int
}

func (s *memAuditSink) RecordConversion(ctx context.Context, rec repository.ConversionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversions = append(s.conversions, rec)
	return nil
}

func (s *memAuditSink) RecordLogin(ctx context.Context, rec repository.LoginRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, rec)
	return nil
}

func (s *memAuditSink) RecordRateLimit(ctx context.Context, identity, operation, clientIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimits++
	return nil
}

func (s *memAuditSink) RecordBlocked(ctx context.Context, clientIP, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked++
	return nil
}

func (s *memAuditSink) conversionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversions)
}
