package client

import (
	"fmt"
	"net/http"

	"github.com/kailas-cloud/knowwho/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() on an *APIError to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrNodeNotFound     = domain.ErrNodeNotFound
	ErrInvalidDataset   = domain.ErrInvalidDataset
	ErrInvalidSettings  = domain.ErrInvalidSettings
	ErrInvalidRequest   = domain.ErrInvalidRequest
	ErrRateLimited      = domain.ErrRateLimited
	ErrLLMDisabled      = domain.ErrLLMDisabled
	ErrLLMProviderError = domain.ErrLLMProviderError
)

// APIError is a non-2xx response or an error event on a stream.
type APIError struct {
	StatusCode int      `json:"-"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("knowwho: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("knowwho: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the error code to a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "dataset_not_found":
		return ErrNotFound
	case "node_not_found":
		return ErrNodeNotFound
	case "bad_request":
		return ErrInvalidRequest
	case "rate_limited":
		return ErrRateLimited
	case "llm_disabled":
		return ErrLLMDisabled
	case "llm_provider_error":
		return ErrLLMProviderError
	case "validation_failed":
		if e.Message == ErrInvalidSettings.Error() {
			return ErrInvalidSettings
		}
		return ErrInvalidDataset
	}
	return nil
}

// retryable reports whether the status code is worth another attempt.
// 501 means the feature is off and will stay off.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError && status != http.StatusNotImplemented
}
