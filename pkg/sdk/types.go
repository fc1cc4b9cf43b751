package vecmatch

import (
	"slices"
	"time"

	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// Post is a submission request.
type Post struct {
	OwnerID int64
	Topic   string
	Content string
	// CreatedAt defaults to now when zero.
	CreatedAt time.Time
}

// Candidate is a post held in the matching pool.
type Candidate struct {
	ID        string
	OwnerID   int64
	Topic     string
	Content   string
	Vector    []float32
	CreatedAt time.Time
	ExpiresAt time.Time // zero = never expires
}

// Match is a pooled candidate scored against the submitted post.
type Match struct {
	Candidate  Candidate
	Similarity float64
}

// Result is the outcome of Submit.
type Result struct {
	Post        Candidate
	Precise     []Match
	Recommended []Match
}

// HasMatches reports whether either tier is non-empty.
func (r Result) HasMatches() bool { return len(r.Precise) > 0 || len(r.Recommended) > 0 }

// TotalMatches returns the number of matches across both tiers.
func (r Result) TotalMatches() int { return len(r.Precise) + len(r.Recommended) }

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status     string            // "ok", "degraded", "error"
	Checks     map[string]string // component -> "ok"/"error"
	Candidates int

	CachedVectors int
	CacheHits     int64
	CacheMisses   int64
}

func fromCandidate(c *candidate.Candidate) Candidate {
	return Candidate{
		ID:        c.ID(),
		OwnerID:   c.OwnerID(),
		Topic:     c.Topic(),
		Content:   c.Content(),
		Vector:    slices.Clone(c.Vector()),
		CreatedAt: c.CreatedAt(),
		ExpiresAt: c.ExpiresAt(),
	}
}

func fromScored(scored []match.Scored) []Match {
	out := make([]Match, len(scored))
	for i := range scored {
		out[i] = Match{Candidate: fromCandidate(&scored[i].Candidate), Similarity: scored[i].Similarity}
	}
	return out
}
