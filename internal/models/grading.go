package models

import (
	"time"
)

// GradeRecord is the gradebook row for one user on one assignment.
// A nil Grade means ungraded.
type GradeRecord struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	AssignmentID uint     `json:"assignment_id" gorm:"not null;uniqueIndex:idx_grade_records_owner"`
	UserID       string   `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_grade_records_owner"`
	Grade        *float64 `json:"grade"`
	GraderID     string   `json:"grader_id" gorm:"size:255"`

	// Host gradebook mirror
	GradebookSynced bool       `json:"gradebook_synced" gorm:"default:false"`
	SyncError       *string    `json:"sync_error" gorm:"type:text"`
	SyncedAt        *time.Time `json:"synced_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GradeRecord) TableName() string {
	return "grade_records"
}
