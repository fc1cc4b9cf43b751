package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var t0 = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func newTestPool(t *testing.T) (*Pool, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: t0}
	return New(zap.NewNop(), WithClock(clk.Now)), clk
}

func mk(owner int64, topic string) *candidate.Candidate {
	c := candidate.Reconstruct(fmt.Sprintf("post-%d", owner), owner, topic, "text", []float32{1}, t0, time.Time{})
	return &c
}

func ownerIDs(cs []candidate.Candidate) []int64 {
	out := make([]int64, len(cs))
	for i := range cs {
		out[i] = cs[i].OwnerID()
	}
	return out
}

func TestSubmit_SetsExpiry(t *testing.T) {
	p, _ := newTestPool(t)

	stored := p.Submit(mk(1, "sports"), 30*time.Minute)
	assert.Equal(t, t0.Add(30*time.Minute), stored.ExpiresAt())

	got, ok := p.lookup(1)
	require.True(t, ok)
	assert.Equal(t, stored.ExpiresAt(), got.ExpiresAt())
}

func TestSubmit_NonPositiveTTLIsOpenEnded(t *testing.T) {
	p, clk := newTestPool(t)

	stored := p.Submit(mk(1, "sports"), 0)
	assert.False(t, stored.HasExpiry())

	clk.Advance(1000 * time.Hour)
	assert.Equal(t, []int64{1}, ownerIDs(p.Active("sports")))
}

func TestSubmit_SameOwnerReplacesAcrossTopics(t *testing.T) {
	p, _ := newTestPool(t)

	p.Submit(mk(1, "sports"), time.Hour)
	p.Submit(mk(1, "music"), time.Hour)

	assert.Equal(t, 1, p.Len())
	assert.Empty(t, p.Active("sports"), "first post must be unreachable")
	assert.Equal(t, []int64{1}, ownerIDs(p.Active("music")))

	got, ok := p.lookup(1)
	require.True(t, ok)
	assert.Equal(t, "music", got.Topic())
}

func TestActive_FiltersTopicAndExpiry(t *testing.T) {
	p, clk := newTestPool(t)

	p.Submit(mk(1, "sports"), 10*time.Minute)
	p.Submit(mk(2, "sports"), 30*time.Minute)
	p.Submit(mk(3, "music"), 30*time.Minute)

	assert.Equal(t, []int64{1, 2}, ownerIDs(p.Active("sports")))
	assert.Equal(t, []int64{3}, ownerIDs(p.Active("music")))
	assert.Empty(t, p.Active("cooking"))

	clk.Advance(10 * time.Minute) // owner 1 expires exactly now
	assert.Equal(t, []int64{2}, ownerIDs(p.Active("sports")))

	now := clk.Now()
	for _, c := range p.Active("sports") {
		assert.True(t, c.ExpiresAt().After(now))
	}

	assert.Equal(t, 3, p.Len(), "Active must not remove expired entries")
}

func TestActive_SubmissionOrder(t *testing.T) {
	p, _ := newTestPool(t)

	for _, owner := range []int64{5, 2, 9, 1, 7} {
		p.Submit(mk(owner, "t"), time.Hour)
	}
	// Resubmission moves the owner to the end.
	p.Submit(mk(2, "t"), time.Hour)

	assert.Equal(t, []int64{5, 9, 1, 7, 2}, ownerIDs(p.Active("t")))
}

func TestRemove(t *testing.T) {
	p, _ := newTestPool(t)

	p.Submit(mk(1, "sports"), time.Hour)
	p.Remove(1)
	p.Remove(1)
	p.Remove(42)

	assert.Equal(t, 0, p.Len())
	_, ok := p.lookup(1)
	assert.False(t, ok)
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	size := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_pool_size"})
	swept := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_pool_swept"})
	clk := &fakeClock{now: t0}
	p := New(zap.NewNop(), WithClock(clk.Now), WithMetrics(size, swept))

	p.Submit(mk(1, "a"), time.Minute)
	p.Submit(mk(2, "a"), time.Hour)
	p.Submit(mk(3, "b"), 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(size))

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, p.Sweep())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(size))
	assert.Equal(t, 1.0, testutil.ToFloat64(swept))

	assert.Equal(t, 0, p.Sweep())
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	p, _ := newTestPool(t)
	p.Submit(mk(1, "a"), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	p := New(zap.NewNop())
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				owner := int64(i%20 + 1)
				topic := fmt.Sprintf("topic-%d", (i+w)%3)
				switch i % 4 {
				case 0, 1:
					p.Submit(mk(owner, topic), time.Minute)
				case 2:
					_ = p.Active(topic)
				case 3:
					p.Remove(owner)
				}
			}
			p.Sweep()
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, p.Len(), 20)
	seen := map[int64]bool{}
	for _, topic := range []string{"topic-0", "topic-1", "topic-2"} {
		for _, c := range p.Active(topic) {
			assert.False(t, seen[c.OwnerID()], "owner %d appears twice", c.OwnerID())
			seen[c.OwnerID()] = true
		}
	}
}
