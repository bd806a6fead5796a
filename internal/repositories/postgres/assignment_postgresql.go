package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentPostgreSQL struct {
	base
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{base{db: db}}
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := a.getDB(tx).WithContext(ctx).First(&assignment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	return a.getDB(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"course_id", "name", "instructions", "max_grade", "attachments", "line_item_url", "updated_at"}),
	}).Create(assignment).Error
}

type SubmissionPostgreSQL struct {
	base
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{base{db: db}}
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.getDB(tx).WithContext(ctx).First(&submission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	return s.getDB(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"assignment_id", "user_id", "status", "online_text", "attachments", "submitted_at", "updated_at"}),
	}).Create(submission).Error
}
