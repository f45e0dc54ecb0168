package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/metrics"
)

// Retry defaults for opening a stream.
const (
	defaultInitialInterval = time.Second
	defaultMaxInterval     = 10 * time.Second
	defaultMaxAttempts     = 3
)

// Completer is a streaming chat provider using the OpenAI-compatible API.
type Completer struct {
	client      *openai.Client
	model       string
	provider    string
	timeout     time.Duration
	maxAttempts int
	initial     time.Duration
	logger      *zap.Logger
}

// Config holds the LLM provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Provider    string
	Timeout     time.Duration // per attempt, 0 disables
	MaxAttempts int
	Logger      *zap.Logger

	// InitialInterval overrides the first retry delay; tests shorten it.
	InitialInterval time.Duration
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = defaultInitialInterval
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		provider:    cfg.Provider,
		timeout:     cfg.Timeout,
		maxAttempts: attempts,
		initial:     initial,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.Completer. The stream open is retried with
// exponential backoff; once deltas have been emitted nothing is retried.
func (c *Completer) Complete(
	ctx context.Context,
	req domain.CompletionRequest,
	emit func(string) error,
) (domain.CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	start := time.Now()

	stream, err := c.open(ctx, model, req)
	if err != nil {
		c.recordFailure(model, "api_error")
		return domain.CompletionResult{}, parseAPIError(err)
	}
	defer stream.Close()

	var text strings.Builder
	var usage openai.Usage
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.recordFailure(model, "stream_error")
			return domain.CompletionResult{}, parseAPIError(err)
		}
		if resp.Usage != nil {
			usage = *resp.Usage
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		text.WriteString(delta)
		if err := emit(delta); err != nil {
			c.recordFailure(model, "client_gone")
			return domain.CompletionResult{}, fmt.Errorf("emit delta: %w", err)
		}
	}

	if text.Len() == 0 {
		c.recordFailure(model, "empty_response")
		return domain.CompletionResult{}, fmt.Errorf("empty completion: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, model).Observe(time.Since(start).Seconds())
	if usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "completion").Add(float64(usage.CompletionTokens))
	}

	return domain.CompletionResult{
		Text:             text.String(),
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}, nil
}

// attemptStream ties a stream to the context of the attempt that opened it.
type attemptStream struct {
	*openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (s *attemptStream) Close() error {
	err := s.ChatCompletionStream.Close()
	s.cancel()
	return err
}

// open starts the stream, retrying transient failures. Each attempt gets its
// own timeout, which also bounds reading the stream it returns.
func (c *Completer) open(ctx context.Context, model string, req domain.CompletionRequest) (*attemptStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:         model,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)

	var stream *attemptStream
	op := func() error {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		s, err := c.client.CreateChatCompletionStream(attemptCtx, chatReq)
		if err != nil {
			cancel()
			return attemptError(ctx, err)
		}
		stream = &attemptStream{ChatCompletionStream: s, cancel: cancel}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.LLMRetriesTotal.WithLabelValues(c.provider, model).Inc()
		c.logger.Warn("LLM stream open failed, retrying",
			zap.String("model", model), zap.Duration("wait", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by parseAPIError
	}
	return stream, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// attemptError classifies a failed attempt. An attempt deadline is retried
// while the caller's context is still live.
func attemptError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if !retryable(err) {
		return backoff.Permanent(err)
	}
	return err
}

func (c *Completer) recordFailure(model, errorType string) {
	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
	c.logger.Debug("LLM request failed", zap.String("model", model), zap.String("error_type", errorType))
}

// retryable reports whether a stream open failure may succeed on retry:
// rate limits, server errors and transport failures.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrLLMProviderError

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("llm request canceled: %w", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("llm API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrap)
	}

	return fmt.Errorf("llm request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
