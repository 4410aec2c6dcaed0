package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satfarm/farmcarbon/internal/ndvi"
)

func TestNewRedis_RequiresAddr(t *testing.T) {
	_, err := NewRedis(RedisOptions{Addr: " "})
	assert.Error(t, err)
}

func TestRedis_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	tests := []struct {
		prefix string
		want   string
	}{
		{"", "farmcarbon:snapshot:f1"},
		{"custom", "custom:f1"},
		{"custom:", "custom:f1"},
	}
	for _, tt := range tests {
		r := NewRedisWithClient(client, tt.prefix, 0)
		assert.Equal(t, tt.want, r.key("f1"))
	}
}

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis(RedisOptions{Addr: mr.Addr(), Prefix: "test", TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(context.Background()))
	return r, mr
}

func TestRedis_RoundTrip(t *testing.T) {
	r, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Put(ctx, "f1", sampleResult(40)))
	got, ok, err := r.Get(ctx, "f1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResult(40), got)
	assert.Equal(t, 40.0, got.After().Dense)

	raw, err := mr.Get("test:f1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"Dense Veg"`)
	assert.Equal(t, time.Minute, mr.TTL("test:f1"))

	// Overwrite replaces the stored snapshot
	require.NoError(t, r.Put(ctx, "f1", sampleResult(60)))
	got, _, err = r.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.After().Dense)

	assert.Error(t, r.Put(ctx, "f1", (*ndvi.ChangeResult)(nil)))
}

func TestRedis_Expiry(t *testing.T) {
	r, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "f1", sampleResult(40)))
	mr.FastForward(2 * time.Minute)

	_, ok, err := r.Get(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_NoTTL(t *testing.T) {
	r, mr := newTestRedis(t, 0)

	require.NoError(t, r.Put(context.Background(), "f1", sampleResult(40)))
	assert.Equal(t, time.Duration(0), mr.TTL("test:f1"))
}

func TestRedis_CorruptValue(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	require.NoError(t, mr.Set("test:f1", "{not json"))

	_, ok, err := r.Get(context.Background(), "f1")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), `decode snapshot "f1"`)
}

func TestRedis_ServerDown(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	mr.Close()

	_, _, err := r.Get(context.Background(), "f1")
	assert.Error(t, err)
	assert.Error(t, r.Put(context.Background(), "f1", sampleResult(40)))
}
