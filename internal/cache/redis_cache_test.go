package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mr, NewRedisCache(client, logger)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	_, svc := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, svc.Set(ctx, "k1", payload{Name: "a", Count: 2}, time.Minute))

	var got payload
	require.NoError(t, svc.Get(ctx, "k1", &got))
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	require.NoError(t, svc.Delete(ctx, "k1"))
	assert.ErrorIs(t, svc.Get(ctx, "k1", &got), ErrCacheMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	_, svc := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "gateway:response:a", 1, 0))
	require.NoError(t, svc.Set(ctx, "gateway:response:b", 2, 0))
	require.NoError(t, svc.Set(ctx, "other", 3, 0))

	n, err := svc.DeletePattern(ctx, "gateway:response:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var v int
	assert.NoError(t, svc.Get(ctx, "other", &v))
	assert.Equal(t, 3, v)
}

func TestRedisResponseCache_LookupRespectsKeyAndTTL(t *testing.T) {
	mr, svc := newTestRedis(t)
	ctx := context.Background()
	rc := NewRedisResponseCache(svc, time.Hour)

	entry := &models.CacheEntry{
		RequestType:    "check_instructions",
		RequestHash:    "abc",
		RawResponse:    `{"success":true,"data":{"ok":true}}`,
		ParsedResponse: datatypes.JSON(`{"ok":true}`),
	}
	require.NoError(t, rc.Store(ctx, entry))

	hit, err := rc.Lookup(ctx, "check_instructions", "abc", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.JSONEq(t, `{"ok":true}`, string(hit.ParsedResponse))

	miss, err := rc.Lookup(ctx, "check_instructions", "other", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, miss)

	mr.FastForward(2 * time.Hour)
	expired, err := rc.Lookup(ctx, "check_instructions", "abc", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, rc.Store(ctx, entry))
	n, err := rc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
