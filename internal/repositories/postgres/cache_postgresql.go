package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type CachePostgreSQL struct {
	base
}

func NewCachePostgreSQL(db *gorm.DB) repositories.CacheRepository {
	return &CachePostgreSQL{base{db: db}}
}

// FindLatest returns the newest entry for the key created at or after since.
func (c *CachePostgreSQL) FindLatest(ctx context.Context, tx *gorm.DB, requestType, requestHash string, since time.Time) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := c.getDB(tx).WithContext(ctx).
		Where("request_type = ? AND request_hash = ? AND created_at >= ?", requestType, requestHash, since).
		Order("created_at DESC, id DESC").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (c *CachePostgreSQL) Create(ctx context.Context, tx *gorm.DB, entry *models.CacheEntry) error {
	return c.getDB(tx).WithContext(ctx).Create(entry).Error
}

func (c *CachePostgreSQL) DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	result := c.getDB(tx).WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (c *CachePostgreSQL) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	result := c.getDB(tx).WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
