package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

// --- Embedder ---

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dimension() != 3 {
		t.Fatalf("expected 3 dimensions, got %d", result.Dimension())
	}
}

func TestInstrumentedEmbedder_RecordsUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 100,
		TotalTokens:  100,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	for range 2 {
		if _, err := p.Embed(ctx, "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if usage.EmbeddingTokens() != 200 {
		t.Fatalf("expected 200 tokens, got %d", usage.EmbeddingTokens())
	}
}

func TestInstrumentedEmbedder_NoUsageCollector(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 5}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	cause := errors.New("api error")
	p := NewInstrumentedEmbedder(&mockEmbedder{err: cause}, "test", "test-model", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

// --- Completer ---

func TestInstrumentedCompleter_Success(t *testing.T) {
	inner := domain.CompleterFunc(func(_ context.Context, system, user string) (string, error) {
		return system + "|" + user, nil
	})
	p := NewInstrumentedCompleter(inner, "test", "chat-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	got, err := p.Complete(ctx, "sys", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "sys|q" {
		t.Errorf("unexpected answer: %q", got)
	}
	if usage.CompletionCalls() != 1 {
		t.Errorf("expected 1 completion call, got %d", usage.CompletionCalls())
	}
}

func TestInstrumentedCompleter_ErrorStillCounted(t *testing.T) {
	inner := domain.CompleterFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", domain.ErrCompletionProviderError
	})
	p := NewInstrumentedCompleter(inner, "test", "chat-model", zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	_, err := p.Complete(ctx, "sys", "q")
	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Fatalf("expected ErrCompletionProviderError, got %v", err)
	}
	if usage.CompletionCalls() != 1 {
		t.Errorf("expected 1 completion call, got %d", usage.CompletionCalls())
	}
}
