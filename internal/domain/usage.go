package domain

import (
	"context"
	"sync"
)

type modelUsageKey struct{}

// ModelUsage collects model consumption for a single HTTP request.
// The handler puts a pointer into the context before calling the service;
// decorators add to it; the handler reads it for response headers.
type ModelUsage struct {
	mu              sync.Mutex
	embeddingTokens int
	completionCalls int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ModelUsage) {
	u := &ModelUsage{}
	return context.WithValue(ctx, modelUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ModelUsage {
	u, _ := ctx.Value(modelUsageKey{}).(*ModelUsage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens.
func (u *ModelUsage) AddEmbeddingTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += n
	u.mu.Unlock()
}

// AddCompletionCall records one chat-completion round trip.
func (u *ModelUsage) AddCompletionCall() {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.completionCalls++
	u.mu.Unlock()
}

// EmbeddingTokens returns the recorded token total.
func (u *ModelUsage) EmbeddingTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens
}

// CompletionCalls returns the number of recorded completion calls.
func (u *ModelUsage) CompletionCalls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.completionCalls
}
