package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/domain"
)

// InstrumentedEmbedder wraps Embedder with request logging and per-request usage accounting.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, provider: provider, model: model, logger: logger}
}

// Embed delegates to the inner embedder and records token usage on the request context.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Warn("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).AddEmbeddingTokens(result.TotalTokens)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", result.Dimension()),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// InstrumentedCompleter wraps Completer with request logging and per-request usage accounting.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedCompleter wraps a completer with observability.
func NewInstrumentedCompleter(inner domain.Completer, provider, model string, logger *zap.Logger) *InstrumentedCompleter {
	return &InstrumentedCompleter{inner: inner, provider: provider, model: model, logger: logger}
}

// Complete delegates to the inner completer.
func (p *InstrumentedCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	start := time.Now()
	answer, err := p.inner.Complete(ctx, systemPrompt, userText)
	duration := time.Since(start)

	domain.UsageFromContext(ctx).AddCompletionCall()

	if err != nil {
		p.logger.Warn("Completion request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("complete: %w", err)
	}

	p.logger.Debug("Completion request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("answer_chars", len(answer)),
	)
	return answer, nil
}
