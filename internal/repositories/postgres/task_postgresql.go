package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type TaskPostgreSQL struct {
	base
}

func NewTaskPostgreSQL(db *gorm.DB) repositories.TaskRepository {
	return &TaskPostgreSQL{base{db: db}}
}

func (t *TaskPostgreSQL) Get(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.SubmissionTask, error) {
	var task models.SubmissionTask
	if err := t.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND submission_id = ?", assignmentID, submissionID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (t *TaskPostgreSQL) GetBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) (*models.SubmissionTask, error) {
	var task models.SubmissionTask
	if err := t.getDB(tx).WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("updated_at DESC").
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// Enqueue creates the task row or resets an existing one back to queued.
func (t *TaskPostgreSQL) Enqueue(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.SubmissionTask, error) {
	var task *models.SubmissionTask
	err := t.getDB(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		existing, err := t.Get(ctx, db, assignmentID, submissionID)
		if err != nil {
			return err
		}
		now := time.Now()

		if existing == nil {
			task = &models.SubmissionTask{
				AssignmentID: assignmentID,
				SubmissionID: submissionID,
				Status:       models.TaskQueued,
				Attempts:     1,
				QueuedAt:     now,
			}
			return db.Create(task).Error
		}

		if err := db.Model(&models.SubmissionTask{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"status":              models.TaskQueued,
				"questions_generated": 0,
				"error_message":       nil,
				"attempts":            gorm.Expr("attempts + 1"),
				"queued_at":           now,
				"started_at":          nil,
				"completed_at":        nil,
			}).Error; err != nil {
			return err
		}

		task, err = t.Get(ctx, db, assignmentID, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t *TaskPostgreSQL) MarkRunning(ctx context.Context, tx *gorm.DB, id uint) error {
	return t.getDB(tx).WithContext(ctx).
		Model(&models.SubmissionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.TaskRunning,
			"started_at": time.Now(),
		}).Error
}

func (t *TaskPostgreSQL) MarkCompleted(ctx context.Context, tx *gorm.DB, id uint, questionsGenerated int) error {
	return t.getDB(tx).WithContext(ctx).
		Model(&models.SubmissionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              models.TaskCompleted,
			"questions_generated": questionsGenerated,
			"error_message":       nil,
			"completed_at":        time.Now(),
		}).Error
}

func (t *TaskPostgreSQL) MarkFailed(ctx context.Context, tx *gorm.DB, id uint, message string) error {
	return t.getDB(tx).WithContext(ctx).
		Model(&models.SubmissionTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.TaskFailed,
			"error_message": message,
			"completed_at":  time.Now(),
		}).Error
}

func (t *TaskPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TaskFilters) ([]*models.SubmissionTask, error) {
	var tasks []*models.SubmissionTask

	query := t.getDB(tx).WithContext(ctx).Model(&models.SubmissionTask{})
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	if filters.Before != nil {
		query = query.Where("COALESCE(started_at, queued_at) < ?", *filters.Before)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if err := query.Order("queued_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
