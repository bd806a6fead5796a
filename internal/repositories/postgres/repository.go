package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

// base carries the root connection and resolves the optional transaction
type base struct {
	db *gorm.DB
}

func (b base) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.db
}

type repository struct {
	db         *gorm.DB
	assignment repositories.AssignmentRepository
	submission repositories.SubmissionRepository
	settings   repositories.SettingsRepository
	question   repositories.QuestionRepository
	session    repositories.SessionRepository
	grade      repositories.GradeRepository
	task       repositories.TaskRepository
	cache      repositories.CacheRepository
}

// NewRepository wires all gorm repositories over one connection
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:         db,
		assignment: NewAssignmentPostgreSQL(db),
		submission: NewSubmissionPostgreSQL(db),
		settings:   NewSettingsPostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		session:    NewSessionPostgreSQL(db),
		grade:      NewGradePostgreSQL(db),
		task:       NewTaskPostgreSQL(db),
		cache:      NewCachePostgreSQL(db),
	}
}

func (r *repository) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *repository) Submission() repositories.SubmissionRepository { return r.submission }
func (r *repository) Settings() repositories.SettingsRepository     { return r.settings }
func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) Session() repositories.SessionRepository       { return r.session }
func (r *repository) Grade() repositories.GradeRepository           { return r.grade }
func (r *repository) Task() repositories.TaskRepository             { return r.task }
func (r *repository) Cache() repositories.CacheRepository           { return r.cache }

func (r *repository) DB() *gorm.DB {
	return r.db
}

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
