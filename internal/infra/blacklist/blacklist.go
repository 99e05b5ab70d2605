package blacklist

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.AccessGate = (*Gate)(nil)

// entry is one blocked address or range. raw keeps the exact text the
// operator supplied so List and Remove round-trip it unchanged.
type entry struct {
	raw    string
	prefix netip.Prefix
	valid  bool
}

// Gate holds the blocked list behind an atomic pointer. Every mutation
// builds a fresh slice and swaps it in whole, so a concurrent IsBlocked
// sees either the complete old list or the complete new one.
type Gate struct {
	mu   sync.Mutex // serializes writers only
	list atomic.Pointer[[]entry]
	file string
	log  *zerolog.Logger
}

func New(file string, logger *zerolog.Logger) *Gate {
	g := &Gate{file: file, log: logger}
	empty := []entry{}
	g.list.Store(&empty)
	return g
}

// parseEntry accepts a single IP ("10.0.0.4") or a CIDR range
// ("10.0.0.0/24"). Single addresses become host-length prefixes.
func parseEntry(raw string) (entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entry{}, domain.ErrInvalidArgument
	}
	if strings.Contains(raw, "/") {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return entry{}, fmt.Errorf("parse %q: %w", raw, domain.ErrInvalidArgument)
		}
		return entry{raw: raw, prefix: p.Masked(), valid: true}, nil
	}
	a, err := netip.ParseAddr(raw)
	if err != nil {
		return entry{}, fmt.Errorf("parse %q: %w", raw, domain.ErrInvalidArgument)
	}
	return entry{raw: raw, prefix: netip.PrefixFrom(a, a.BitLen()), valid: true}, nil
}

// IsBlocked tests addr against the list in order and reports the first
// match. A malformed candidate matches nothing; a malformed stored entry is
// skipped so one bad config line cannot take the whole gate down.
func (g *Gate) IsBlocked(ctx context.Context, addr string) bool {
	a, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, e := range *g.list.Load() {
		if !e.valid {
			continue
		}
		if e.prefix.Contains(a.Unmap()) {
			return true
		}
	}
	return false
}

func (g *Gate) Add(ctx context.Context, raw string) error {
	e, err := parseEntry(raw)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := *g.list.Load()
	for _, existing := range cur {
		if existing.raw == e.raw {
			return domain.ErrAlreadyExists
		}
	}
	next := make([]entry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, e)
	g.list.Store(&next)
	return nil
}

func (g *Gate) Remove(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := *g.list.Load()
	next := make([]entry, 0, len(cur))
	found := false
	for _, e := range cur {
		if e.raw == raw {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return domain.ErrNotFound
	}
	g.list.Store(&next)
	return nil
}

// Reload re-reads the backing file and swaps the whole list in one store.
// Malformed lines are kept as invalid entries and logged, not fatal.
func (g *Gate) Reload(ctx context.Context) error {
	if g.file == "" {
		return nil
	}
	f, err := os.Open(g.file)
	if err != nil {
		return fmt.Errorf("open blacklist file: %w", err)
	}
	defer f.Close()

	next := []entry{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			if g.log != nil {
				g.log.Warn().Str("entry", line).Msg("skipping malformed blacklist entry")
			}
			next = append(next, entry{raw: line})
			continue
		}
		next = append(next, e)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read blacklist file: %w", err)
	}

	g.mu.Lock()
	g.list.Store(&next)
	g.mu.Unlock()
	return nil
}

func (g *Gate) List(ctx context.Context) []string {
	cur := *g.list.Load()
	out := make([]string, 0, len(cur))
	for _, e := range cur {
		out = append(out, e.raw)
	}
	return out
}
