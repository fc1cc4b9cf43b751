package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/config"
	dbRedis "github.com/kailas-cloud/vecmatch/internal/db/redis"
	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
	logpkg "github.com/kailas-cloud/vecmatch/internal/logger"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
	"github.com/kailas-cloud/vecmatch/internal/repository/embcache"
	"github.com/kailas-cloud/vecmatch/internal/repository/pool"
	"github.com/kailas-cloud/vecmatch/internal/repository/vectorcache"
	chiTransport "github.com/kailas-cloud/vecmatch/internal/transport/chi"
	ollamaEmb "github.com/kailas-cloud/vecmatch/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/vecmatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecmatch/internal/usecase/health"
	submissionuc "github.com/kailas-cloud/vecmatch/internal/usecase/submission"
	"github.com/kailas-cloud/vecmatch/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Shared embedding cache is optional.
	var store *dbRedis.Store
	if rc := cfg.Embedding.RemoteCache; rc.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    rc.Addrs,
			Password: rc.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create remote cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Remote cache not ready", zap.Error(err))
		}
		logger.Info("Connected to remote cache", zap.Strings("addrs", rc.Addrs))
	}

	embedder := buildEmbedder(cfg.Embedding, store, logger)

	vectors := vectorcache.New(cfg.Cache.MaxEntries, metrics.VectorCacheTotal)

	candidates := pool.New(logger, pool.WithMetrics(metrics.PoolCandidates, metrics.PoolSweptTotal))
	go candidates.RunSweeper(ctx, time.Duration(cfg.Pool.SweepIntervalSec)*time.Second)

	policy := match.Policy{
		Window:               time.Duration(cfg.Match.WindowMinutes) * time.Minute,
		PreciseThreshold:     cfg.Match.PreciseThreshold,
		RecommendedThreshold: cfg.Match.RecommendedThreshold,
	}
	if err := policy.Validate(); err != nil {
		logger.Fatal("Invalid match policy", zap.Error(err))
	}
	matcher := match.NewMatcher(policy, logger)

	submissions := submissionuc.New(candidates, vectors, embedder, matcher, submissionuc.Config{
		TTL:          time.Duration(cfg.Pool.TTLSec) * time.Second,
		EmbedTimeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	}, logger)

	healthOpts := []healthuc.Option{healthuc.WithPool(candidates), healthuc.WithVectorCache(vectors)}
	if store != nil {
		healthOpts = append(healthOpts, healthuc.WithRemoteCache(store))
	}
	healthSvc := healthuc.New(newEmbeddingHealthChecker(embedder), healthOpts...)

	server := chiTransport.NewServer(submissions, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	stop()

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain:
// provider -> DimensionGuard -> Instrumented -> remote cache -> Instruction.
func buildEmbedder(cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	var embedder domain.Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			HTTPClient: &http.Client{Timeout: timeout},
			Logger:     logger,
		})
	default:
		embedder = ollamaEmb.NewEmbedder(ollamaEmb.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: timeout,
			Logger:  logger,
		})
	}

	if cfg.Dimensions > 0 {
		embedder = domain.NewDimensionGuard(embedder, cfg.Dimensions)
	}

	// Rate limit only provider calls; remote cache hits pass straight through.
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Provider, cfg.Model,
		embeddinguc.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), logger,
	)

	if store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: cfg.RemoteCache.KeyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.RemoteCache.TTLSec) * time.Second,
		}, metrics.EmbeddingRemoteCacheTotal, logger)
	}

	// Instruction prefix (outermost, cache key includes instruction)
	if cfg.Instruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Instruction)
	}

	return embedder
}
