package vectorcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

// ComputeFunc produces the vector for a text on a cache miss.
type ComputeFunc func(ctx context.Context, text string) ([]float32, error)

// Cache memoizes text -> vector computations with an LRU bound on entry count.
// Concurrent misses for the same text share a single compute call.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	evictList  *list.List

	flights singleflight.Group

	cacheTotal *prometheus.CounterVec

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key    string
	vector []float32
}

// New creates a cache holding at most maxEntries vectors (0 or negative = unbounded).
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(maxEntries int, cacheTotal *prometheus.CounterVec) *Cache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Cache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		evictList:  list.New(),
		cacheTotal: cacheTotal,
	}
}

// Resolve returns the cached vector for text, or computes, stores and returns it.
// Compute errors are returned as-is and nothing is cached for text.
// compute receives ctx without its cancellation, so it must bound itself;
// a caller whose ctx ends while waiting returns ctx.Err() and the shared computation keeps running.
func (c *Cache) Resolve(ctx context.Context, text string, compute ComputeFunc) ([]float32, error) {
	if vec, ok := c.get(text); ok {
		c.hits.Add(1)
		c.incCache("hit")
		return vec, nil
	}

	ch := c.flights.DoChan(text, func() (any, error) {
		return c.load(ctx, text, compute)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("resolve vector: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		vec, ok := res.Val.([]float32)
		if !ok {
			return nil, errors.New("resolve vector: unexpected flight result")
		}
		return vec, nil
	}
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// load runs inside the flight for text.
func (c *Cache) load(ctx context.Context, text string, compute ComputeFunc) ([]float32, error) {
	// Another flight may have stored the key between the caller's lookup and this call.
	if vec, ok := c.get(text); ok {
		c.hits.Add(1)
		c.incCache("hit")
		return vec, nil
	}

	c.misses.Add(1)
	c.incCache("miss")

	vec, err := compute(context.WithoutCancel(ctx), text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty vector: %w", domain.ErrEmbeddingProviderError)
	}
	c.set(text, vec)
	return vec, nil
}

func (c *Cache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).vector, true
	}
	return nil, false
}

func (c *Cache) set(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		el.Value.(*entry).vector = vec
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, vector: vec})
	for c.maxEntries > 0 && c.evictList.Len() > c.maxEntries {
		oldest := c.evictList.Back()
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
