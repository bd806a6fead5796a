package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradePostgreSQL struct {
	base
}

func NewGradePostgreSQL(db *gorm.DB) repositories.GradeRepository {
	return &GradePostgreSQL{base{db: db}}
}

func (g *GradePostgreSQL) Get(ctx context.Context, tx *gorm.DB, assignmentID uint, userID string) (*models.GradeRecord, error) {
	var record models.GradeRecord
	if err := g.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Upsert writes the grade and resets the mirror status; the caller re-syncs afterwards.
func (g *GradePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, record *models.GradeRecord) error {
	record.GradebookSynced = false
	record.SyncError = nil
	record.SyncedAt = nil

	return g.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"grade", "grader_id", "gradebook_synced", "sync_error", "synced_at", "updated_at",
			}),
		}).
		Select("*").
		Create(record).Error
}

func (g *GradePostgreSQL) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.GradeRecord, error) {
	var records []*models.GradeRecord
	if err := g.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("user_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (g *GradePostgreSQL) UpdateSyncStatus(ctx context.Context, tx *gorm.DB, id uint, synced bool, syncErr *string) error {
	updates := map[string]interface{}{
		"gradebook_synced": synced,
		"sync_error":       syncErr,
	}
	if synced {
		updates["synced_at"] = time.Now()
	}
	return g.getDB(tx).WithContext(ctx).
		Model(&models.GradeRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}
