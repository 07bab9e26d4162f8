package domain

import "context"

// Completer is the chat-completion contract used for dataset selection,
// query drafting and visualization classification.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, systemPrompt, userText string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return f(ctx, systemPrompt, userText)
}
