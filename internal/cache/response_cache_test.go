package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))
	return db
}

func TestDBResponseCache_NewestWithinTTL(t *testing.T) {
	db := newTestDB(t)
	rc := NewDBResponseCache(postgres.NewCachePostgreSQL(db))
	ctx := context.Background()

	old := &models.CacheEntry{
		RequestType:    "generate_questions",
		RequestHash:    "h1",
		ParsedResponse: datatypes.JSON(`{"v":1}`),
		CreatedAt:      time.Now().Add(-48 * time.Hour),
	}
	recent := &models.CacheEntry{
		RequestType:    "generate_questions",
		RequestHash:    "h1",
		ParsedResponse: datatypes.JSON(`{"v":2}`),
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	newest := &models.CacheEntry{
		RequestType:    "generate_questions",
		RequestHash:    "h1",
		ParsedResponse: datatypes.JSON(`{"v":3}`),
		CreatedAt:      time.Now().Add(-time.Minute),
	}
	for _, e := range []*models.CacheEntry{old, recent, newest} {
		require.NoError(t, rc.Store(ctx, e))
	}

	hit, err := rc.Lookup(ctx, "generate_questions", "h1", 24*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.JSONEq(t, `{"v":3}`, string(hit.ParsedResponse))

	// same hash under another request type never matches
	miss, err := rc.Lookup(ctx, "analyze_submission", "h1", 24*time.Hour)
	require.NoError(t, err)
	assert.Nil(t, miss)

	n, err := rc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	gone, err := rc.Lookup(ctx, "generate_questions", "h1", 24*time.Hour)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDBResponseCache_ExpiredEntryIsMiss(t *testing.T) {
	db := newTestDB(t)
	rc := NewDBResponseCache(postgres.NewCachePostgreSQL(db))
	ctx := context.Background()

	require.NoError(t, rc.Store(ctx, &models.CacheEntry{
		RequestType:    "check_instructions",
		RequestHash:    "h2",
		ParsedResponse: datatypes.JSON(`{}`),
		CreatedAt:      time.Now().Add(-25 * time.Hour),
	}))

	entry, err := rc.Lookup(ctx, "check_instructions", "h2", 24*time.Hour)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestDBResponseCache_PurgeDropsOnlyExpired(t *testing.T) {
	db := newTestDB(t)
	rc := NewDBResponseCache(postgres.NewCachePostgreSQL(db))
	ctx := context.Background()

	for i, age := range []time.Duration{72 * time.Hour, 30 * time.Hour, time.Hour} {
		require.NoError(t, rc.Store(ctx, &models.CacheEntry{
			RequestType:    "analyze_submission",
			RequestHash:    string(rune('a' + i)),
			ParsedResponse: datatypes.JSON(`{}`),
			CreatedAt:      time.Now().Add(-age),
		}))
	}

	removed, err := rc.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	var left int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}
