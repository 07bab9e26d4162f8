package tablens

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// Embedder converts text to vector embeddings. Its output dimension is
// discovered at runtime; switching to a model of another dimension starts
// a new collection.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer answers one system prompt plus one user message.
// Optional: without it dataset selection, query drafting and visualization
// fall back to their rule-based paths.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noCompleter fails every call so callers take their fallback path.
type noCompleter struct{}

func (noCompleter) Complete(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("tablens: completer not configured (use WithCompleter): %w",
		domain.ErrCompletionProviderError)
}
