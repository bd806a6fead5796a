package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsPostgreSQL struct {
	base
}

func NewSettingsPostgreSQL(db *gorm.DB) repositories.SettingsRepository {
	return &SettingsPostgreSQL{base{db: db}}
}

func (s *SettingsPostgreSQL) GetByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) (*models.QuizSettings, error) {
	var settings models.QuizSettings
	if err := s.getDB(tx).WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// Upsert writes every column so that false and zero values are persisted too
func (s *SettingsPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error {
	return s.getDB(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "assignment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"questions_to_generate", "instructor_questions", "submission_questions",
			"randomize_answers", "time_per_question", "show_countdown",
			"max_window_blurs", "enabled", "updated_at",
		}),
	}).Select("*").Create(settings).Error
}
