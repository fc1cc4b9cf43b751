package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

type stubHealthEmbedder struct {
	stubEmbedder
	healthErr error
}

func (s *stubHealthEmbedder) HealthCheck(_ context.Context) error { return s.healthErr }

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_document: ")

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_document: hello world" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewInstructionEmbedder(inner, "search_document: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_HealthCheckDelegates(t *testing.T) {
	inner := &stubHealthEmbedder{healthErr: errors.New("down")}
	emb := NewInstructionEmbedder(inner, "q: ")

	if err := emb.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error from inner")
	}

	plain := NewInstructionEmbedder(&stubEmbedder{}, "q: ")
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected nil for inner without health check, got %v", err)
	}
}

func TestDimensionGuard_AcceptsMatchingLength(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2, 3}}}
	g := NewDimensionGuard(inner, 3)

	res, err := g.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(res.Embedding))
	}
}

func TestDimensionGuard_RejectsWrongLength(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2}}}
	g := NewDimensionGuard(inner, 3)

	_, err := g.Embed(context.Background(), "text")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestDimensionGuard_RejectsEmpty(t *testing.T) {
	g := NewDimensionGuard(&stubEmbedder{}, 0)

	_, err := g.Embed(context.Background(), "text")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError for empty vector, got %v", err)
	}
}

func TestDimensionGuard_DisabledAcceptsAnyLength(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1, 2, 3, 4, 5}}}
	g := NewDimensionGuard(inner, 0)

	if _, err := g.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := NewDimensionMismatch(4, 3)
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatal("expected errors.Is ErrVectorDimMismatch")
	}
	want := "vector dimension mismatch: want 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
