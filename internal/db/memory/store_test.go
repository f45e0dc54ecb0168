package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/knowwho/internal/db"
)

func TestStore_GetSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	value := []byte("hello")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'J'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got), "stored value must be a copy")

	got[0] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(again), "returned value must be a copy")
}

func TestStore_SetWithTTL(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, s.SetWithTTL(ctx, "forever", []byte("v"), 0))

	time.Sleep(50 * time.Millisecond)

	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
	ok, err := s.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DelExists(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Del(ctx, "k"))
	require.NoError(t, s.Del(ctx, "k"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Scan(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for _, k := range []string{"kw:dataset:b", "kw:dataset:a", "kw:settings", "other:dataset:c"} {
		require.NoError(t, s.Set(ctx, k, []byte("x")))
	}

	keys, err := s.Scan(ctx, "kw:dataset:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"kw:dataset:a", "kw:dataset:b"}, keys)

	keys, err = s.Scan(ctx, "kw:dataset:?")
	require.NoError(t, err)
	assert.Equal(t, []string{"kw:dataset:a", "kw:dataset:b"}, keys)
}

func TestStore_ScanStarSpansSlash(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "kw:dataset:battery/thermal", []byte("x")))
	require.NoError(t, s.Set(ctx, "kw:dataset:q1", []byte("x")))

	keys, err := s.Scan(ctx, "kw:dataset:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"kw:dataset:battery/thermal", "kw:dataset:q1"}, keys)
}

func TestStore_Close(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.WaitForReady(ctx, time.Second))
	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	s.Close()

	assert.ErrorIs(t, s.Ping(ctx), db.ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), db.ErrClosed)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}
