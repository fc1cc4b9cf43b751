package submission

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/repository/vectorcache"
)

// Pool stores the latest candidate of every owner.
type Pool interface {
	Submit(c *candidate.Candidate, ttl time.Duration) candidate.Candidate
	Active(topic string) []candidate.Candidate
	Remove(ownerID int64)
}

// VectorResolver returns the vector for a text, computing it at most once.
type VectorResolver interface {
	Resolve(ctx context.Context, text string, compute vectorcache.ComputeFunc) ([]float32, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Matcher scores a candidate against the pool.
type Matcher interface {
	Match(current *candidate.Candidate, pool []candidate.Candidate) (match.Result, error)
}
