package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unibook-api/internal/domain/entity"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestGenerationStatusStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewGenerationStatusStore(NewCache(client), "", time.Hour)

	missing, err := store.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	status := entity.GenerationStatus{
		Step:                entity.GenerationStepWritingLoop,
		CurrentChapterIndex: 2,
		TotalChapters:       5,
		Logs:                []string{"a", "b"},
		IsProcessing:        true,
	}
	require.NoError(t, store.Save(ctx, "book-1", status))
	assert.True(t, mr.Exists("generation:status:book-1"))
	assert.Equal(t, time.Hour, mr.TTL("generation:status:book-1"))

	got, err := store.Load(ctx, "book-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, status, *got)

	require.NoError(t, store.Delete(ctx, "book-1"))
	gone, err := store.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGenerationStatusStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	store := NewGenerationStatusStore(NewCache(client), "gs:", 0)

	require.NoError(t, mr.Set("gs:book-1", "{not json"))
	_, err := store.Load(ctx, "book-1")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	key := BuildRateLimitKey("user-1", "/api/v1/books")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	remaining, err = limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestHealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	assert.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
