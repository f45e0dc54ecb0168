package briefcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/domain"
)

type mockCompleter struct {
	deltas []string
	result domain.CompletionResult
	err    error
	calls  int
}

func (m *mockCompleter) Complete(
	_ context.Context, _ domain.CompletionRequest, emit func(string) error,
) (domain.CompletionResult, error) {
	m.calls++
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	for _, d := range m.deltas {
		if err := emit(d); err != nil {
			return domain.CompletionResult{}, err
		}
	}
	return m.result, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedCompleter(t *testing.T, inner *mockCompleter) (*CachedCompleter, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cc := New(inner, ms, "kw:", time.Hour, nil, zap.NewNop())
	return cc, ms
}

func collect(out *[]string) func(string) error {
	return func(d string) error {
		*out = append(*out, d)
		return nil
	}
}
