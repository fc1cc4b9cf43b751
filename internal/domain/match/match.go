package match

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
)

// Default matching policy values.
const (
	DefaultWindow               = 90 * time.Minute
	DefaultPreciseThreshold     = 0.85
	DefaultRecommendedThreshold = 0.70
)

// Policy holds the time window and the tier thresholds.
type Policy struct {
	Window               time.Duration
	PreciseThreshold     float64
	RecommendedThreshold float64
}

// DefaultPolicy returns the 90 minute / 0.85 / 0.70 policy.
func DefaultPolicy() Policy {
	return Policy{
		Window:               DefaultWindow,
		PreciseThreshold:     DefaultPreciseThreshold,
		RecommendedThreshold: DefaultRecommendedThreshold,
	}
}

// Validate checks that thresholds are ordered and the window is positive.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", p.Window)
	}
	if p.RecommendedThreshold <= 0 || p.RecommendedThreshold > p.PreciseThreshold || p.PreciseThreshold > 1 {
		return fmt.Errorf("thresholds must satisfy 0 < recommended <= precise <= 1, got recommended=%v precise=%v",
			p.RecommendedThreshold, p.PreciseThreshold)
	}
	return nil
}

// Scored pairs a candidate with its similarity to the incoming post.
type Scored struct {
	Candidate  candidate.Candidate
	Similarity float64
}

// Result holds both tiers, each ordered by similarity descending.
type Result struct {
	Precise     []Scored
	Recommended []Scored
}

// HasMatches reports whether any tier is non-empty.
func (r Result) HasMatches() bool {
	return len(r.Precise) > 0 || len(r.Recommended) > 0
}

// TotalMatchCount returns the number of candidates across both tiers.
func (r Result) TotalMatchCount() int {
	return len(r.Precise) + len(r.Recommended)
}

// PreciseCandidates returns the precise tier without scores.
func (r Result) PreciseCandidates() []candidate.Candidate { return candidates(r.Precise) }

// RecommendedCandidates returns the recommended tier without scores.
func (r Result) RecommendedCandidates() []candidate.Candidate { return candidates(r.Recommended) }

func candidates(s []Scored) []candidate.Candidate {
	out := make([]candidate.Candidate, len(s))
	for i := range s {
		out[i] = s[i].Candidate
	}
	return out
}

// Matcher scores an incoming post against a candidate set.
type Matcher struct {
	policy Policy
	logger *zap.Logger
}

// NewMatcher creates a matcher. The policy is expected to be validated.
func NewMatcher(policy Policy, logger *zap.Logger) *Matcher {
	return &Matcher{policy: policy, logger: logger}
}

// Match filters, scores, sorts and partitions pool against current.
// A dimension mismatch with any remaining candidate fails the whole call.
func (m *Matcher) Match(current *candidate.Candidate, pool []candidate.Candidate) (Result, error) {
	scored := make([]Scored, 0, len(pool))
	for i := range pool {
		c := &pool[i]
		if c.OwnerID() == current.OwnerID() {
			continue
		}
		if absDuration(c.CreatedAt().Sub(current.CreatedAt())) > m.policy.Window {
			continue
		}

		sim, err := Cosine(current.Vector(), c.Vector())
		if err != nil {
			return Result{}, fmt.Errorf("score owner %d: %w", c.OwnerID(), err)
		}
		m.logger.Debug("Candidate scored",
			zap.Int64("owner_id", current.OwnerID()),
			zap.Int64("candidate_owner_id", c.OwnerID()),
			zap.Float64("similarity", sim),
		)
		scored = append(scored, Scored{Candidate: *c, Similarity: sim})
	}

	slices.SortStableFunc(scored, func(a, b Scored) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})

	var res Result
	for _, s := range scored {
		switch {
		case s.Similarity >= m.policy.PreciseThreshold:
			res.Precise = append(res.Precise, s)
		case s.Similarity >= m.policy.RecommendedThreshold:
			res.Recommended = append(res.Recommended, s)
		}
	}
	return res, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
