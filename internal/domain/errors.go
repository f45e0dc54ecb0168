package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing dataset.
	ErrNotFound = errors.New("not found")
	// ErrNodeNotFound signals a node id absent from the dataset.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidDataset signals a dataset that breaks a structural invariant.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrInvalidSettings signals rejected settings values.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidRequest signals malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrLLMDisabled signals that no LLM provider is configured.
	ErrLLMDisabled = errors.New("llm provider not configured")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
)

// ValidationError lists every violation found while validating a value.
type ValidationError struct {
	Kind       error
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Violations[0])
	}
	return fmt.Sprintf("%s: %d violations, first: %s", e.Kind.Error(), len(e.Violations), e.Violations[0])
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// NewValidationError returns nil when there are no violations.
func NewValidationError(kind error, violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Violations: violations}
}
