package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ResponseCache stores successful gateway responses by (request type, request hash).
type ResponseCache interface {
	// Lookup returns the newest entry no older than ttl, or nil.
	Lookup(ctx context.Context, requestType, requestHash string, ttl time.Duration) (*models.CacheEntry, error)
	Store(ctx context.Context, entry *models.CacheEntry) error
	Clear(ctx context.Context) (int64, error)
	// Purge drops entries older than ttl and reports how many went.
	Purge(ctx context.Context, ttl time.Duration) (int64, error)
}

// ===== DATABASE BACKEND =====

type dbResponseCache struct {
	repo repositories.CacheRepository
	now  func() time.Time
}

func NewDBResponseCache(repo repositories.CacheRepository) ResponseCache {
	return &dbResponseCache{repo: repo, now: time.Now}
}

func (c *dbResponseCache) Lookup(ctx context.Context, requestType, requestHash string, ttl time.Duration) (*models.CacheEntry, error) {
	return c.repo.FindLatest(ctx, nil, requestType, requestHash, c.now().Add(-ttl))
}

func (c *dbResponseCache) Store(ctx context.Context, entry *models.CacheEntry) error {
	return c.repo.Create(ctx, nil, entry)
}

func (c *dbResponseCache) Clear(ctx context.Context) (int64, error) {
	return c.repo.DeleteAll(ctx, nil)
}

func (c *dbResponseCache) Purge(ctx context.Context, ttl time.Duration) (int64, error) {
	return c.repo.DeleteOlderThan(ctx, nil, c.now().Add(-ttl))
}

// ===== REDIS BACKEND =====

const responseKeyPrefix = "gateway:response:"

type redisResponseCache struct {
	cache CacheService
	ttl   time.Duration
}

// NewRedisResponseCache keeps entries in redis; expiry is delegated to the key TTL.
func NewRedisResponseCache(cache CacheService, ttl time.Duration) ResponseCache {
	return &redisResponseCache{cache: cache, ttl: ttl}
}

func responseKey(requestType, requestHash string) string {
	return responseKeyPrefix + requestType + ":" + requestHash
}

func (c *redisResponseCache) Lookup(ctx context.Context, requestType, requestHash string, ttl time.Duration) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := c.cache.Get(ctx, responseKey(requestType, requestHash), &entry); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	// a shorter lookup ttl than the write ttl still applies
	if time.Since(entry.CreatedAt) > ttl {
		return nil, nil
	}
	return &entry, nil
}

func (c *redisResponseCache) Store(ctx context.Context, entry *models.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if !json.Valid(entry.ParsedResponse) {
		entry.ParsedResponse = nil
	}
	return c.cache.Set(ctx, responseKey(entry.RequestType, entry.RequestHash), entry, c.ttl)
}

func (c *redisResponseCache) Clear(ctx context.Context) (int64, error) {
	return c.cache.DeletePattern(ctx, responseKeyPrefix+"*")
}

// Purge is a no-op: redis expires the keys itself
func (c *redisResponseCache) Purge(context.Context, time.Duration) (int64, error) {
	return 0, nil
}
