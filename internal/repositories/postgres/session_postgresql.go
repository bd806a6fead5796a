package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	base
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{base{db: db}}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	if session.Version == 0 {
		session.Version = 1
	}
	return s.getDB(tx).WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := s.getDB(tx).WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByOwner(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint, userID string) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := s.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND submission_id = ? AND user_id = ?", assignmentID, submissionID, userID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetBySubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := s.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND submission_id = ?", assignmentID, submissionID).
		Order("id DESC").
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	var sessions []*models.QuizSession
	var total int64

	// apply filter first
	query := s.getDB(tx).WithContext(ctx).Model(&models.QuizSession{}).Where("assignment_id = ?", assignmentID)
	query = applySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, sessionSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s *SessionPostgreSQL) ListCompleted(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.QuizSession, error) {
	var sessions []*models.QuizSession
	if err := s.getDB(tx).WithContext(ctx).
		Where("assignment_id = ? AND attempt_completed = ?", assignmentID, true).
		Order("id ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, assignmentID uint) (*repositories.SessionStats, error) {
	var stats repositories.SessionStats
	var avgScore sql.NullFloat64

	// Aggregate stats in single query
	row := s.getDB(tx).WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("assignment_id = ?", assignmentID).
		Select(`COUNT(*),
			COALESCE(SUM(CASE WHEN attempt_completed = true THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN integrity_flagged = true THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN attempt_started = true AND attempt_completed = false THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN attempt_completed = true THEN final_score END)`).
		Row()
	if err := row.Scan(&stats.Total, &stats.Completed, &stats.Flagged, &stats.InProgress, &avgScore); err != nil {
		return nil, err
	}
	if avgScore.Valid {
		stats.AvgScore = &avgScore.Float64
	}
	return &stats, nil
}

// SaveIfOpen persists the mutable columns while the stored row is still open.
// Concurrent writers to an open session are last-write-wins; version only counts writes.
func (s *SessionPostgreSQL) SaveIfOpen(ctx context.Context, tx *gorm.DB, session *models.QuizSession) (bool, error) {
	now := time.Now()
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ? AND attempt_completed = ?", session.ID, false).
		Updates(map[string]interface{}{
			"current_question":     session.CurrentQuestion,
			"answers":              session.Answers,
			"time_remaining":       session.TimeRemaining,
			"window_blur_count":    session.WindowBlurCount,
			"attempt_started":      session.AttemptStarted,
			"started_at":           session.StartedAt,
			"attempt_completed":    session.AttemptCompleted,
			"completed_at":         session.CompletedAt,
			"completion_reason":    session.CompletionReason,
			"integrity_violations": session.IntegrityViolations,
			"integrity_flagged":    session.IntegrityFlagged,
			"final_score":          session.FinalScore,
			"client_score":         session.ClientScore,
			"max_score":            session.MaxScore,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	session.Version++
	session.UpdatedAt = now
	return true, nil
}

var sessionSortColumns = map[string]string{
	"created_at":   "created_at",
	"completed_at": "completed_at",
	"final_score":  "final_score",
	"user_id":      "user_id",
}

func applySessionFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Completed != nil {
		query = query.Where("attempt_completed = ?", *filters.Completed)
	}
	if filters.Flagged != nil {
		query = query.Where("integrity_flagged = ?", *filters.Flagged)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	return query
}

// applyPaginationAndSort only sorts by whitelisted columns
func applyPaginationAndSort(query *gorm.DB, columns map[string]string, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := columns[sortBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if sortOrder == "desc" {
		direction = "DESC"
	}
	query = query.Order(column + " " + direction)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
