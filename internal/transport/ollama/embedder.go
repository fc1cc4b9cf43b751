// Package ollama is an embedding provider for the Ollama HTTP API.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
)

const (
	// DefaultBaseURL is the address of a local Ollama daemon.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is a multilingual embedding model.
	DefaultModel = "bge-m3"

	embeddingsPath = "/api/embeddings"
	tagsPath       = "/api/tags"
	providerName   = "ollama"
)

// Config holds Ollama client settings.
type Config struct {
	BaseURL string
	Model   string
	// APIKey is sent as a bearer token when Ollama sits behind an authenticating proxy.
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Embedder calls POST /api/embeddings. It never retries.
type Embedder struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg Config) *Embedder {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Embedder{client: client, model: model, logger: logger}
}

// Embed implements domain.Embedder. Ollama reports no token usage, so only the vector is set.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var out embeddingResponse
	var apiErr errorResponse

	start := time.Now()
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: e.model, Prompt: text}).
		SetResult(&out).
		SetError(&apiErr).
		ForceContentType("application/json").
		Post(embeddingsPath)
	if err != nil {
		e.fail("transport")
		return domain.EmbeddingResult{}, fmt.Errorf("ollama request: %v: %w", err, domain.ErrEmbeddingProviderError)
	}

	if resp.IsError() {
		e.fail("api_error")
		detail := apiErr.Error
		if detail == "" {
			detail = http.StatusText(resp.StatusCode())
		}
		return domain.EmbeddingResult{}, fmt.Errorf("ollama API error %d: %s: %w",
			resp.StatusCode(), detail, domain.ErrEmbeddingProviderError)
	}

	if len(out.Embedding) == 0 {
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("ollama returned empty embedding: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: out.Embedding}, nil
}

// HealthCheck lists local models via GET /api/tags.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Get(tagsPath)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("list models: status %d", resp.StatusCode())
	}
	return nil
}

func (e *Embedder) fail(errorType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, errorType).Inc()
	e.logger.Debug("Ollama embedding failed", zap.String("model", e.model), zap.String("error_type", errorType))
}
