package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	base
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{base{db: db}}
}

// ===== INSTRUCTOR BANK =====

func (q *QuestionPostgreSQL) ListInstructor(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.InstructorQuestion, error) {
	var questions []*models.InstructorQuestion
	if err := q.getDB(tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetInstructor(ctx context.Context, tx *gorm.DB, assignmentID, id uint) (*models.InstructorQuestion, error) {
	var question models.InstructorQuestion
	if err := q.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND id = ?", assignmentID, id).
		First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) CreateInstructorBatch(ctx context.Context, tx *gorm.DB, questions []*models.InstructorQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return q.getDB(tx).WithContext(ctx).Create(&questions).Error
}

func (q *QuestionPostgreSQL) UpdateInstructor(ctx context.Context, tx *gorm.DB, question *models.InstructorQuestion) error {
	return q.getDB(tx).WithContext(ctx).Save(question).Error
}

func (q *QuestionPostgreSQL) DeleteInstructor(ctx context.Context, tx *gorm.DB, assignmentID, id uint) (bool, error) {
	result := q.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND id = ?", assignmentID, id).
		Delete(&models.InstructorQuestion{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReplaceInstructor swaps the whole bank; callers should pass a transaction
func (q *QuestionPostgreSQL) ReplaceInstructor(ctx context.Context, tx *gorm.DB, assignmentID uint, questions []*models.InstructorQuestion) error {
	db := q.getDB(tx).WithContext(ctx)
	if err := db.Where("assignment_id = ?", assignmentID).Delete(&models.InstructorQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to clear question bank: %w", err)
	}
	if len(questions) == 0 {
		return nil
	}
	return db.Create(&questions).Error
}

// NextInstructorPosition gets the next position value for appending a question
func (q *QuestionPostgreSQL) NextInstructorPosition(ctx context.Context, tx *gorm.DB, assignmentID uint) (int, error) {
	var maxPosition int
	err := q.getDB(tx).WithContext(ctx).
		Model(&models.InstructorQuestion{}).
		Where("assignment_id = ?", assignmentID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPosition).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max position: %w", err)
	}
	return maxPosition + 1, nil
}

// ===== SUBMISSION SET =====

func (q *QuestionPostgreSQL) ListSubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) ([]*models.SubmissionQuestion, error) {
	var questions []*models.SubmissionQuestion
	if err := q.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND submission_id = ?", assignmentID, submissionID).
		Order("position ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) ReplaceSubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint, questions []*models.SubmissionQuestion) error {
	db := q.getDB(tx).WithContext(ctx)
	if err := db.Where("assignment_id = ? AND submission_id = ?", assignmentID, submissionID).
		Delete(&models.SubmissionQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to clear submission questions: %w", err)
	}
	if len(questions) == 0 {
		return nil
	}
	return db.Create(&questions).Error
}
