package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
// Providers that do not report usage leave the token counts at zero.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// DimensionGuard rejects provider vectors whose length differs from the configured dimensionality.
type DimensionGuard struct {
	inner      Embedder
	dimensions int
}

// NewDimensionGuard wraps inner. dimensions <= 0 disables the check.
func NewDimensionGuard(inner Embedder, dimensions int) *DimensionGuard {
	return &DimensionGuard{inner: inner, dimensions: dimensions}
}

// Embed delegates and validates the vector length.
func (g *DimensionGuard) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := g.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // transparent decorator
	}
	if len(result.Embedding) == 0 {
		return EmbeddingResult{}, fmt.Errorf("empty embedding: %w", ErrEmbeddingProviderError)
	}
	if g.dimensions > 0 && len(result.Embedding) != g.dimensions {
		return EmbeddingResult{}, fmt.Errorf("provider returned %d dimensions, expected %d: %w",
			len(result.Embedding), g.dimensions, ErrEmbeddingProviderError)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (g *DimensionGuard) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
