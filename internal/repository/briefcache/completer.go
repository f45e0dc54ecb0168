package briefcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/domain"
)

// store is the consumer interface for the completion cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the stored form of a finished completion.
type entry struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// CachedCompleter caches finished completions in a key-value store.
type CachedCompleter struct {
	inner      domain.Completer
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Completer,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCompleter {
	return &CachedCompleter{
		inner:      inner,
		store:      s,
		prefix:     prefix + "brief_cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Complete replays a cached completion as a single delta or streams from
// the inner completer and stores the result.
// Cache hit: zero tokens, Cached = true.
func (c *CachedCompleter) Complete(
	ctx context.Context,
	req domain.CompletionRequest,
	emit func(string) error,
) (domain.CompletionResult, error) {
	key := c.cacheKey(req)

	if e, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		if err := emit(e.Text); err != nil {
			return domain.CompletionResult{}, fmt.Errorf("emit cached: %w", err)
		}
		return domain.CompletionResult{Text: e.Text, Model: e.Model, Cached: true}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Complete(ctx, req, emit)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}

	if result.Text != "" {
		c.putToCache(ctx, key, entry{Text: result.Text, Model: result.Model})
	}
	return result, nil
}

func (c *CachedCompleter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedCompleter) cacheKey(req domain.CompletionRequest) string {
	h := sha256.New()
	for _, part := range []string{req.Model, req.System, req.Prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedCompleter) getFromCache(ctx context.Context, key string) (entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached brief", zap.String("key", key), zap.Error(err))
		}
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Text == "" {
		c.logger.Warn("Failed to parse cached brief", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	return e, true
}

func (c *CachedCompleter) putToCache(ctx context.Context, key string, e entry) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to encode brief", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache brief", zap.String("key", key), zap.Error(err))
	}
}
