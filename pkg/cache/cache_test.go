package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("sum:", "hello")

	assert.Equal(t, "sum:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", k)
	assert.NotEqual(t, k, Key("sum:", "hello!"))
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", "1"))

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", "1"))

	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	err    error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedis_GetSet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := newRedis(fake, RedisOptions{TTL: time.Hour})

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k", "v"))
	assert.Equal(t, "v", fake.data["agentry:k"])
	assert.Equal(t, time.Hour, fake.ttls["agentry:k"])

	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, r.Close())
	assert.True(t, fake.closed)
}

func TestRedis_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	r := newRedis(fake, RedisOptions{Prefix: "x:"})

	_, _, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "cache: redis get: connection refused")

	err = r.Set(ctx, "k", "v")
	require.ErrorContains(t, err, "cache: redis set: connection refused")
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: redis ping 127.0.0.1:1")
}
