package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCache_MissReturnsNil(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)

	got, err := cache.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_SetGetAndExpire(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	sample := SampleQuizzes()["sample"]
	require.NoError(t, cache.Set(ctx, sample))
	assert.True(t, mr.Exists("quiz:content:sample"))

	got, err := cache.Get(ctx, "sample")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sample, *got)

	mr.FastForward(2 * time.Minute)
	got, err = cache.Get(ctx, "sample")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_CorruptEntry(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(client, 0)

	require.NoError(t, mr.Set("quiz:content:bad", "{not json"))
	_, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
}
