package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	_, err := mc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, mc.Set(ctx, "long", []byte("2"), time.Hour))

	now = now.Add(2 * time.Second)
	_, err := mc.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "long")
	assert.NoError(t, err)

	now = now.Add(2 * time.Hour)
	mc.purgeExpired()
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", []byte("a"), time.Minute))
	require.NoError(t, mc.Set(ctx, "b", []byte("b"), time.Minute))
	_, _ = mc.Get(ctx, "a")
	require.NoError(t, mc.Set(ctx, "c", []byte("c"), time.Minute))

	_, err := mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	v := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", v, time.Minute))
	v[0] = 'x'
	got, _ := mc.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "swanpulse")

	mock.ExpectSet("swanpulse:k", []byte("v"), time.Minute).SetVal("OK")
	mock.ExpectGet("swanpulse:k").SetVal("v")
	mock.ExpectGet("swanpulse:gone").RedisNil()
	mock.ExpectGet("swanpulse:err").SetErr(errors.New("down"))
	mock.ExpectUnlink("swanpulse:k").SetVal(1)

	require.NoError(t, rc.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = rc.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = rc.Get(ctx, "err")
	assert.EqualError(t, err, "down")

	require.NoError(t, rc.Delete(ctx, "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCache_PromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	mem := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(mem, NewRedisCacheFromClient(db, "p"), time.Minute)

	mock.ExpectGet("p:k").SetVal("remote")

	got, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))

	// second read is served from memory; no further redis expectation
	got, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCache_WriteThrough(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	mem := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(mem, NewRedisCacheFromClient(db, "p"), time.Minute)

	mock.ExpectSet("p:k", []byte("v"), time.Minute).SetErr(errors.New("readonly"))
	assert.Error(t, lc.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := mem.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mock.ExpectSet("p:k", []byte("v"), time.Minute).SetVal("OK")
	require.NoError(t, lc.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "history:peak:chart:42", GenerateKeyWithParams("history", "peak", "chart", 42))
	assert.Len(t, HashKey("some user id"), 16)
}
