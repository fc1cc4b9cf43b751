package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTTL          = 30 * time.Minute
	DefaultEmbedTimeout = 10 * time.Second
)

// Request is a post submitted for matching.
type Request struct {
	OwnerID int64
	Topic   string
	Content string
	// Timestamp is the post creation time; zero means now.
	Timestamp time.Time
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.OwnerID <= 0 {
		return fmt.Errorf("owner_id must be positive: %w", domain.ErrInvalidRequest)
	}
	if r.Topic == "" {
		return fmt.Errorf("topic is required: %w", domain.ErrInvalidRequest)
	}
	if r.Content == "" {
		return fmt.Errorf("content is required: %w", domain.ErrInvalidRequest)
	}
	if len(r.Content) > candidate.MaxContentSize {
		return fmt.Errorf("content too large (max %d bytes): %w", candidate.MaxContentSize, domain.ErrInvalidRequest)
	}
	return nil
}

// Outcome is the stored candidate together with its matches.
type Outcome struct {
	Candidate candidate.Candidate
	Result    match.Result
}

// Config holds submission settings.
type Config struct {
	// TTL is how long a submitted candidate stays matchable. Negative = open-ended.
	TTL time.Duration
	// EmbedTimeout bounds a single embedding computation.
	EmbedTimeout time.Duration
}

// Service turns posts into candidates and matches them against the pool.
type Service struct {
	pool     Pool
	vectors  VectorResolver
	embedder Embedder
	matcher  Matcher

	ttl          time.Duration
	embedTimeout time.Duration

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides uuid post ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a submission service.
func New(
	pool Pool, vectors VectorResolver, embedder Embedder, matcher Matcher,
	cfg Config, logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		pool:         pool,
		vectors:      vectors,
		embedder:     embedder,
		matcher:      matcher,
		ttl:          cfg.TTL,
		embedTimeout: cfg.EmbedTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       logger,
	}
	if s.ttl == 0 {
		s.ttl = DefaultTTL
	}
	if s.embedTimeout <= 0 {
		s.embedTimeout = DefaultEmbedTimeout
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit embeds the post, replaces the owner's pooled candidate and returns the matches
// among live candidates of the same topic. Any failure aborts the whole submission.
func (s *Service) Submit(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	vec, err := s.vectors.Resolve(ctx, req.Content, s.compute)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve vector: %w", err)
	}

	createdAt := req.Timestamp
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	c, err := candidate.New(s.newID(), req.OwnerID, req.Topic, req.Content, vec, createdAt)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	stored := s.pool.Submit(&c, s.ttl)

	result, err := s.matcher.Match(&stored, s.pool.Active(req.Topic))
	if err != nil {
		return Outcome{}, fmt.Errorf("match candidate: %w", err)
	}

	metrics.MatchResultsTotal.WithLabelValues("precise").Add(float64(len(result.Precise)))
	metrics.MatchResultsTotal.WithLabelValues("recommended").Add(float64(len(result.Recommended)))
	metrics.MatchDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("Candidate matched",
		zap.String("post_id", stored.ID()),
		zap.Int64("owner_id", stored.OwnerID()),
		zap.String("topic", stored.Topic()),
		zap.Int("precise", len(result.Precise)),
		zap.Int("recommended", len(result.Recommended)),
	)

	return Outcome{Candidate: stored, Result: result}, nil
}

// Withdraw removes the owner's candidate. Removing an absent owner is not an error.
func (s *Service) Withdraw(_ context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return fmt.Errorf("owner_id must be positive: %w", domain.ErrInvalidRequest)
	}
	s.pool.Remove(ownerID)
	return nil
}

// Active lists live candidates of a topic in submission order.
func (s *Service) Active(_ context.Context, topic string) ([]candidate.Candidate, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", domain.ErrInvalidRequest)
	}
	return s.pool.Active(topic), nil
}

// compute runs on a vector cache miss. The cache detaches it from the caller's
// cancellation, so the embed timeout is its only bound.
func (s *Service) compute(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	res, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}
