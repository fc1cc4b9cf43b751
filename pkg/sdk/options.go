package vecmatch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// Option configures the Matcher.
type Option interface {
	apply(*matcherConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*matcherConfig)

func (f optionFunc) apply(c *matcherConfig) { f(c) }

type matcherConfig struct {
	embedder Embedder

	// remote embedding cache
	addrs     []string
	password  string
	keyPrefix string
	model     string
	cacheTTL  time.Duration

	ttl           time.Duration
	embedTimeout  time.Duration
	cacheSize     int
	sweepInterval time.Duration
	policy        match.Policy

	now        func() time.Time
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *matcherConfig {
	return &matcherConfig{
		cacheTTL:      7 * 24 * time.Hour,
		cacheSize:     10000,
		sweepInterval: time.Minute,
		policy:        match.DefaultPolicy(),
		now:           time.Now,
	}
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *matcherConfig) {
		c.embedder = e
	})
}

// WithRedis shares computed embeddings through a Redis-compatible server.
// model is part of the cache key; pass the embedding model name.
func WithRedis(addr, password, model string) Option {
	return optionFunc(func(c *matcherConfig) {
		c.addrs = []string{addr}
		c.password = password
		c.model = model
	})
}

// WithRemoteCacheTTL sets how long shared embeddings are kept. Default: 7 days.
func WithRemoteCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *matcherConfig) {
		c.cacheTTL = ttl
	})
}

// WithKeyPrefix sets the remote cache key prefix. Default: "vecmatch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *matcherConfig) {
		c.keyPrefix = prefix
	})
}

// WithTTL sets how long a submitted post stays matchable.
// Default: 30 minutes. Negative keeps posts until withdrawn or replaced.
func WithTTL(ttl time.Duration) Option {
	return optionFunc(func(c *matcherConfig) {
		c.ttl = ttl
	})
}

// WithEmbedTimeout bounds a single embedding call. Default: 10 seconds.
func WithEmbedTimeout(d time.Duration) Option {
	return optionFunc(func(c *matcherConfig) {
		c.embedTimeout = d
	})
}

// WithCacheSize bounds the in-process vector cache. 0 = unbounded. Default: 10000.
func WithCacheSize(n int) Option {
	return optionFunc(func(c *matcherConfig) {
		c.cacheSize = n
	})
}

// WithSweepInterval sets how often expired posts are reclaimed.
// Zero or negative disables the background sweeper; expired posts are still never matched.
func WithSweepInterval(d time.Duration) Option {
	return optionFunc(func(c *matcherConfig) {
		c.sweepInterval = d
	})
}

// WithPolicy overrides the time window and tier thresholds.
// Defaults: 90 minutes, 0.85 precise, 0.70 recommended.
func WithPolicy(window time.Duration, precise, recommended float64) Option {
	return optionFunc(func(c *matcherConfig) {
		c.policy = match.Policy{
			Window:               window,
			PreciseThreshold:     precise,
			RecommendedThreshold: recommended,
		}
	})
}

// WithClock overrides time.Now for TTLs and default timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *matcherConfig) {
		c.now = now
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *matcherConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *matcherConfig) {
		c.metricsReg = reg
	})
}
