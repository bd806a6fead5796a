package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"gorm.io/gorm"
)

// Every method takes an optional tx; nil means "use the root connection".
// Lookups of a single row return nil, nil when nothing matches.

type AssignmentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	Upsert(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
}

type SubmissionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	Upsert(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
}

type SettingsRepository interface {
	GetByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) (*models.QuizSettings, error)
	Upsert(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error
}

type QuestionRepository interface {
	// Instructor bank
	ListInstructor(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.InstructorQuestion, error)
	GetInstructor(ctx context.Context, tx *gorm.DB, assignmentID, id uint) (*models.InstructorQuestion, error)
	CreateInstructorBatch(ctx context.Context, tx *gorm.DB, questions []*models.InstructorQuestion) error
	UpdateInstructor(ctx context.Context, tx *gorm.DB, question *models.InstructorQuestion) error
	DeleteInstructor(ctx context.Context, tx *gorm.DB, assignmentID, id uint) (bool, error)
	ReplaceInstructor(ctx context.Context, tx *gorm.DB, assignmentID uint, questions []*models.InstructorQuestion) error
	NextInstructorPosition(ctx context.Context, tx *gorm.DB, assignmentID uint) (int, error)

	// Submission-generated set
	ListSubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) ([]*models.SubmissionQuestion, error)
	ReplaceSubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint, questions []*models.SubmissionQuestion) error
}

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error)
	GetByOwner(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint, userID string) (*models.QuizSession, error)
	GetBySubmission(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.QuizSession, error)
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint, filters SessionFilters) ([]*models.QuizSession, int64, error)
	ListCompleted(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.QuizSession, error)
	GetStats(ctx context.Context, tx *gorm.DB, assignmentID uint) (*SessionStats, error)

	// SaveIfOpen writes the session only while the stored row is not completed
	// and bumps its version. It reports whether a row was written.
	SaveIfOpen(ctx context.Context, tx *gorm.DB, session *models.QuizSession) (bool, error)
}

type GradeRepository interface {
	Get(ctx context.Context, tx *gorm.DB, assignmentID uint, userID string) (*models.GradeRecord, error)
	Upsert(ctx context.Context, tx *gorm.DB, record *models.GradeRecord) error
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.GradeRecord, error)
	UpdateSyncStatus(ctx context.Context, tx *gorm.DB, id uint, synced bool, syncErr *string) error
}

type TaskRepository interface {
	Get(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.SubmissionTask, error)
	GetBySubmission(ctx context.Context, tx *gorm.DB, submissionID uint) (*models.SubmissionTask, error)
	Enqueue(ctx context.Context, tx *gorm.DB, assignmentID, submissionID uint) (*models.SubmissionTask, error)
	MarkRunning(ctx context.Context, tx *gorm.DB, id uint) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uint, questionsGenerated int) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uint, message string) error
	List(ctx context.Context, tx *gorm.DB, filters TaskFilters) ([]*models.SubmissionTask, error)
}

type CacheRepository interface {
	FindLatest(ctx context.Context, tx *gorm.DB, requestType, requestHash string, since time.Time) (*models.CacheEntry, error)
	Create(ctx context.Context, tx *gorm.DB, entry *models.CacheEntry) error
	DeleteAll(ctx context.Context, tx *gorm.DB) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// Repository aggregates the per-table repositories and owns transactions
type Repository interface {
	Assignment() AssignmentRepository
	Submission() SubmissionRepository
	Settings() SettingsRepository
	Question() QuestionRepository
	Session() SessionRepository
	Grade() GradeRepository
	Task() TaskRepository
	Cache() CacheRepository

	DB() *gorm.DB
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
