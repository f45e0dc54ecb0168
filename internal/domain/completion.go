package domain

import "context"

// Completer is the shared streaming chat-completion contract between layers.
// emit is called for every text delta in order; an emit error aborts the stream.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest, emit func(delta string) error) (CompletionResult, error)
}

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	Model  string
	System string
	Prompt string
}

// CompletionResult carries the full text and token usage through the decorator chain.
type CompletionResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cached           bool
}
