package domain

import "context"

type llmUsageKey struct{}

// LLMUsage collects token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// the service writes after the completion; the handler reads it for response headers.
type LLMUsage struct {
	PromptTokens     int
	CompletionTokens int
	Used             bool // true if the LLM path ran, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *LLMUsage) {
	u := &LLMUsage{}
	return context.WithValue(ctx, llmUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *LLMUsage {
	u, _ := ctx.Value(llmUsageKey{}).(*LLMUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *LLMUsage) AddTokens(prompt, completion int) {
	if u != nil {
		u.PromptTokens += prompt
		u.CompletionTokens += completion
		u.Used = true
	}
}

// TotalTokens returns prompt plus completion tokens.
func (u *LLMUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	return u.PromptTokens + u.CompletionTokens
}
