package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed; matching still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the embedding provider is down; no submission can be matched.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentEmbedding   = "embedding"
	ComponentRemoteCache = "remote_cache"
)

// Report aggregates health check results.
type Report struct {
	Status     Status
	Checks     map[string]CheckResult
	Candidates int
	// VectorCache is nil unless WithVectorCache was given.
	VectorCache *CacheReport
}

// CacheReport is a snapshot of the vector cache counters.
type CacheReport struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Service coordinates health checks.
type Service struct {
	embedding   EmbeddingChecker
	remoteCache Pinger
	pool        PoolSizer
	vectors     VectorCacheStats
}

// Option configures optional components.
type Option func(*Service)

// WithRemoteCache adds the shared embedding cache to the checks.
func WithRemoteCache(p Pinger) Option {
	return func(s *Service) { s.remoteCache = p }
}

// WithPool reports the candidate pool size in the report.
func WithPool(p PoolSizer) Option {
	return func(s *Service) { s.pool = p }
}

// WithVectorCache reports vector cache counters in the report.
func WithVectorCache(c VectorCacheStats) Option {
	return func(s *Service) { s.vectors = c }
}

// New creates a Service. embedding can be nil.
func New(embedding EmbeddingChecker, opts ...Option) *Service {
	s := &Service{embedding: embedding}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.remoteCache != nil {
		checks[ComponentRemoteCache] = result(s.remoteCache.Ping(ctx))
		if checks[ComponentRemoteCache] == CheckError {
			status = Degraded
		}
	}

	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
		if checks[ComponentEmbedding] == CheckError {
			status = Unhealthy
		}
	}

	r := Report{Status: status, Checks: checks}
	if s.pool != nil {
		r.Candidates = s.pool.Len()
	}
	if s.vectors != nil {
		hits, misses := s.vectors.Stats()
		r.VectorCache = &CacheReport{Entries: s.vectors.Len(), Hits: hits, Misses: misses}
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
