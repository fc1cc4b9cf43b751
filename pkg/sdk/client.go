package vecmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/vecmatch/internal/db/redis"
	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/repository/embcache"
	"github.com/kailas-cloud/vecmatch/internal/repository/pool"
	"github.com/kailas-cloud/vecmatch/internal/repository/vectorcache"
	healthuc "github.com/kailas-cloud/vecmatch/internal/usecase/health"
	submissionuc "github.com/kailas-cloud/vecmatch/internal/usecase/submission"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type submissionUseCase interface {
	Submit(ctx context.Context, req submissionuc.Request) (submissionuc.Outcome, error)
	Withdraw(ctx context.Context, ownerID int64) error
	Active(ctx context.Context, topic string) ([]candidate.Candidate, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Matcher is the vecmatch SDK entry point. It is safe for concurrent use.
type Matcher struct {
	store       *dbRedis.Store
	submissions submissionUseCase
	health      healthUseCase
	obs         *observer
	stop        context.CancelFunc
}

// New creates a Matcher. When WithRedis is given, the provided context is used
// for the initial readiness check of the shared embedding cache.
func New(ctx context.Context, opts ...Option) (*Matcher, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("vecmatch: embedder required (use WithEmbedder)")
	}
	if err := cfg.policy.Validate(); err != nil {
		return nil, fmt.Errorf("vecmatch: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store *dbRedis.Store
	if len(cfg.addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("vecmatch: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("vecmatch: remote cache not ready: %w", err)
		}
	}

	return wireMatcher(cfg, store, obs), nil
}

func wireMatcher(cfg *matcherConfig, store *dbRedis.Store, obs *observer) *Matcher {
	// The SDK reports through slog; internal components stay silent.
	logger := zap.NewNop()

	adapter := &embedderAdapter{inner: cfg.embedder}
	var embedder domain.Embedder = adapter
	if store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: cfg.keyPrefix,
			Model:     cfg.model,
			TTL:       cfg.cacheTTL,
		}, nil, logger)
	}

	candidates := pool.New(logger, pool.WithClock(cfg.now))
	vectors := vectorcache.New(cfg.cacheSize, nil)
	submissions := submissionuc.New(
		candidates,
		vectors,
		embedder,
		match.NewMatcher(cfg.policy, logger),
		submissionuc.Config{TTL: cfg.ttl, EmbedTimeout: cfg.embedTimeout},
		logger,
		submissionuc.WithClock(cfg.now),
	)

	healthOpts := []healthuc.Option{healthuc.WithPool(candidates), healthuc.WithVectorCache(vectors)}
	if store != nil {
		healthOpts = append(healthOpts, healthuc.WithRemoteCache(store))
	}

	sweepCtx, stop := context.WithCancel(context.Background())
	if cfg.sweepInterval > 0 {
		go candidates.RunSweeper(sweepCtx, cfg.sweepInterval)
	}

	return &Matcher{
		store:       store,
		submissions: submissions,
		health:      healthuc.New(adapter, healthOpts...),
		obs:         obs,
		stop:        stop,
	}
}

// Close stops the background sweeper and releases the remote cache connection.
func (m *Matcher) Close() {
	if m.stop != nil {
		m.stop()
	}
	if m.store != nil {
		m.store.Close()
	}
}

// Submit embeds the post, makes it the owner's current candidate and returns
// the matching candidates of the same topic, best first.
func (m *Matcher) Submit(ctx context.Context, p Post) (res Result, err error) {
	start := time.Now()
	defer func() { m.obs.observe("submit", start, err) }()

	out, err := m.submissions.Submit(ctx, submissionuc.Request{
		OwnerID:   p.OwnerID,
		Topic:     p.Topic,
		Content:   p.Content,
		Timestamp: p.CreatedAt,
	})
	if err != nil {
		return Result{}, fmt.Errorf("submit: %w", err)
	}

	res = Result{
		Post:        fromCandidate(&out.Candidate),
		Precise:     fromScored(out.Result.Precise),
		Recommended: fromScored(out.Result.Recommended),
	}
	m.obs.matched(&res)
	return res, nil
}

// Withdraw removes the owner's candidate from the pool. Unknown owners are a no-op.
func (m *Matcher) Withdraw(ctx context.Context, ownerID int64) (err error) {
	start := time.Now()
	defer func() { m.obs.observe("withdraw", start, err) }()

	if err = m.submissions.Withdraw(ctx, ownerID); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	return nil
}

// Active lists the live candidates of a topic in submission order.
func (m *Matcher) Active(ctx context.Context, topic string) (_ []Candidate, err error) {
	start := time.Now()
	defer func() { m.obs.observe("active", start, err) }()

	list, err := m.submissions.Active(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("active: %w", err)
	}
	out := make([]Candidate, len(list))
	for i := range list {
		out[i] = fromCandidate(&list[i])
	}
	return out, nil
}

// Health checks the embedder and, when configured, the remote cache.
func (m *Matcher) Health(ctx context.Context) HealthStatus {
	report := m.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	h := HealthStatus{
		Status:     string(report.Status),
		Checks:     checks,
		Candidates: report.Candidates,
	}
	if vc := report.VectorCache; vc != nil {
		h.CachedVectors = vc.Entries
		h.CacheHits = vc.Hits
		h.CacheMisses = vc.Misses
	}
	return h
}
