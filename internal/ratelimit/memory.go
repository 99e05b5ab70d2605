package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jpk2json-service/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*MemoryLimiter)(nil)

// Key builds the counter key for an (identity, operation) pair.
func Key(identity, operation string) string {
	return fmt.Sprintf("rate_limit:%s:%s", identity, operation)
}

// MemoryLimiter is a sliding-window limiter backed by per-key timestamp
// slices. Each key carries its own mutex so the check-and-record step is
// atomic per key while distinct keys never block each other.
type MemoryLimiter struct {
	mu      sync.RWMutex
	windows map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
}

type window struct {
	mu    sync.Mutex
	hits  []time.Time
}

func NewMemoryLimiter(limit int, span time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Tests use this to age entries out of
// the window deterministically.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(ctx context.Context, identity, operation string) (bool, error) {
	w := l.window(Key(identity, operation))

	now := l.now()
	cutoff := now.Add(-l.span)

	w.mu.Lock()
	defer w.mu.Unlock()

	// drop everything older than the window; capacity comes back
	// continuously instead of in discrete buckets
	live := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}
	w.hits = live

	if len(w.hits) >= l.limit {
		return false, nil
	}
	w.hits = append(w.hits, now)
	return true, nil
}

func (l *MemoryLimiter) window(key string) *window {
	l.mu.RLock()
	w, ok := l.windows[key]
	l.mu.RUnlock()
	if ok {
		return w
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[key]; ok {
		return w
	}
	w = &window{}
	l.windows[key] = w
	return w
}
