package models

import (
	"time"
)

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskNotFound  TaskStatus = "not_found"
)

// SubmissionTask records the background question generation for one submission.
type SubmissionTask struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	SubmissionID uint       `json:"submission_id" gorm:"not null;uniqueIndex:idx_submission_tasks_owner"`
	AssignmentID uint       `json:"assignment_id" gorm:"not null;uniqueIndex:idx_submission_tasks_owner"`
	Status       TaskStatus `json:"status" gorm:"not null;size:20;default:queued;index"`

	QuestionsGenerated int     `json:"questions_generated" gorm:"default:0"`
	ErrorMessage       *string `json:"error_message" gorm:"type:text"`
	Attempts           int     `json:"attempts" gorm:"default:0"`

	QueuedAt    time.Time  `json:"queued_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (SubmissionTask) TableName() string {
	return "submission_tasks"
}

// IsTerminal reports whether a poller can stop waiting.
func (t TaskStatus) IsTerminal() bool {
	return t == TaskCompleted || t == TaskFailed
}
