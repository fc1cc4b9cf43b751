package pool

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
)

// Pool holds at most one candidate per owner. Expired candidates stay in
// storage until Sweep, overwrite or Remove, but are never returned by Active.
type Pool struct {
	mu      sync.RWMutex
	entries map[int64]slot
	seq     uint64

	now    func() time.Time
	size   prometheus.Gauge
	swept  prometheus.Counter
	logger *zap.Logger
}

type slot struct {
	seq uint64
	c   candidate.Candidate
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// WithMetrics sets the size gauge and the swept-entries counter. Either may be nil.
func WithMetrics(size prometheus.Gauge, swept prometheus.Counter) Option {
	return func(p *Pool) {
		p.size = size
		p.swept = swept
	}
}

// New creates an empty pool.
func New(logger *zap.Logger, opts ...Option) *Pool {
	p := &Pool{
		entries: make(map[int64]slot),
		now:     time.Now,
		logger:  logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Submit sets expiresAt = now + ttl and stores c under its owner, replacing
// any previous candidate of that owner regardless of topic. ttl <= 0 stores
// an open-ended candidate. Returns the stored candidate.
func (p *Pool) Submit(c *candidate.Candidate, ttl time.Duration) candidate.Candidate {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = p.now().Add(ttl)
	}
	stored := c.WithExpiry(expiresAt)

	p.mu.Lock()
	p.seq++
	p.entries[stored.OwnerID()] = slot{seq: p.seq, c: stored}
	p.setSize(len(p.entries))
	p.mu.Unlock()

	return stored
}

// Active returns the live candidates of topic in submission order.
// It never removes entries.
func (p *Pool) Active(topic string) []candidate.Candidate {
	now := p.now()

	p.mu.RLock()
	live := make([]slot, 0, len(p.entries))
	for _, s := range p.entries {
		if s.c.Topic() == topic && s.c.IsLive(now) {
			live = append(live, s)
		}
	}
	p.mu.RUnlock()

	slices.SortFunc(live, func(a, b slot) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})

	out := make([]candidate.Candidate, len(live))
	for i := range live {
		out[i] = live[i].c
	}
	return out
}

// lookup returns the stored candidate of owner, live or not.
func (p *Pool) lookup(ownerID int64) (candidate.Candidate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.entries[ownerID]
	return s.c, ok
}

// Remove deletes the candidate of owner. No-op if absent.
func (p *Pool) Remove(ownerID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, ownerID)
	p.setSize(len(p.entries))
}

// Len returns the number of stored entries, including expired ones.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Sweep deletes expired entries and returns how many were removed.
func (p *Pool) Sweep() int {
	now := p.now()

	p.mu.Lock()
	removed := 0
	for owner, s := range p.entries {
		if !s.c.IsLive(now) {
			delete(p.entries, owner)
			removed++
		}
	}
	p.setSize(len(p.entries))
	p.mu.Unlock()

	if removed > 0 && p.swept != nil {
		p.swept.Add(float64(removed))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (p *Pool) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Sweep(); n > 0 {
				p.logger.Debug("Swept expired candidates", zap.Int("removed", n))
			}
		}
	}
}

func (p *Pool) setSize(n int) {
	if p.size != nil {
		p.size.Set(float64(n))
	}
}
