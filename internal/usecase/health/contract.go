package health

import "context"

// Pinger checks availability of the shared embedding cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorCacheStats reports the in-process vector cache size and hit ratio.
type VectorCacheStats interface {
	Len() int
	Stats() (hits, misses int64)
}

// PoolSizer reports the number of pooled candidates.
type PoolSizer interface {
	Len() int
}
