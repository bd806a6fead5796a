package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
)

// Assignment mirrors the host assignment fields this service reads.
type Assignment struct {
	ID           uint    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CourseID     uint    `json:"course_id" gorm:"index"`
	Name         string  `json:"name" gorm:"not null;size:255" validate:"required,max=255"`
	Instructions string  `json:"instructions" gorm:"type:text"`
	MaxGrade     float64 `json:"max_grade" gorm:"not null;default:100" validate:"gt=0"`

	// Storage keys of instruction attachments
	Attachments datatypes.JSONSlice[string] `json:"attachments" gorm:"type:jsonb"`

	// AGS line item the gradebook mirror posts scores to
	LineItemURL *string `json:"line_item_url" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// Submission mirrors one host submission.
type Submission struct {
	ID           uint             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	AssignmentID uint             `json:"assignment_id" gorm:"not null;index"`
	UserID       string           `json:"user_id" gorm:"not null;size:255;index"`
	Status       SubmissionStatus `json:"status" gorm:"not null;size:20;default:draft"`
	OnlineText   string           `json:"online_text" gorm:"type:text"`

	Attachments datatypes.JSONSlice[string] `json:"attachments" gorm:"type:jsonb"`

	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// HasContent reports whether there is anything to analyze.
func (s *Submission) HasContent() bool {
	return strings.TrimSpace(s.OnlineText) != "" || len(s.Attachments) > 0
}
