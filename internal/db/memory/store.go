// Package memory implements db.Store in process memory on top of go-cache.
// Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/match"

	"github.com/kailas-cloud/knowwho/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const cleanupInterval = 10 * time.Minute

// Store keeps values in a go-cache instance without default expiration.
type Store struct {
	cache  *cache.Cache
	closed atomic.Bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Ping reports an error once the store was closed.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// Close drops every key.
func (s *Store) Close() {
	s.closed.Store(true)
	s.cache.Flush()
}

// WaitForReady returns immediately: memory is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a copy of the value stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	b := v.([]byte)
	return append([]byte(nil), b...), nil
}

// Set stores a copy of value without expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(key, value, cache.NoExpiration)
}

// SetWithTTL stores a copy of value that expires after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return s.set(key, value, ttl)
}

func (s *Store) set(key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return &db.Error{Op: db.OpSet, Err: db.ErrClosed}
	}
	s.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Del deletes a key. Missing keys are not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Exists checks if a live key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.cache.Get(key)
	return ok, nil
}

// Scan returns live keys matching a Redis-style glob pattern, sorted.
// As with SCAN MATCH, '*' spans any character including '/'.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range s.cache.Items() {
		if match.Match(k, pattern) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
