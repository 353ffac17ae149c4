package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct {
	Rows  []float64
	Label string
}

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", &table{Rows: []float64{1, 2}, Label: "x"}, time.Minute))

	var got table
	require.NoError(t, mc.Get(ctx, "a", &got))
	assert.Equal(t, "x", got.Label)
	assert.Equal(t, []float64{1, 2}, got.Rows)

	var ptr *table
	require.NoError(t, mc.Get(ctx, "a", &ptr))
	assert.Equal(t, "x", ptr.Label)

	var wrong string
	assert.Error(t, mc.Get(ctx, "a", &wrong))
	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCache_ExpiryAndEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "short", "v", time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "short", &s), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "k1", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "k2", "2", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "k3", "3", time.Minute))

	ok, _ := mc.Exists(ctx, "k1")
	assert.False(t, ok, "oldest entry should be evicted")
	ok, _ = mc.Exists(ctx, "k3")
	assert.True(t, ok)
	assert.LessOrEqual(t, mc.Len(), 2)
}

func TestRedisCache_GetString(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "pricelens")
	ctx := context.Background()

	mock.ExpectGet("pricelens:fp").SetVal("abc")
	var s string
	require.NoError(t, rc.Get(ctx, "fp", &s))
	assert.Equal(t, "abc", s)

	mock.ExpectGet("pricelens:gone").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "gone", &s), ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "prices:csv:abc", GenerateKeyWithParams("prices", "csv", "abc"))
	assert.Len(t, HashKey("data/IBM.csv"), 32)
}
