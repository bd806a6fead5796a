package repositories

import (
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Completed *bool   `json:"completed"`
	Flagged   *bool   `json:"flagged"`
	UserID    *string `json:"user_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "completed_at", "final_score"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

// TaskFilters selects tasks; Before compares against started_at, or queued_at for tasks not yet started
type TaskFilters struct {
	Statuses []models.TaskStatus `json:"statuses"`
	Before   *time.Time          `json:"before"`
	Limit    int                 `json:"limit"`
}

// ===== STATS =====

type SessionStats struct {
	Total      int64    `json:"total"`
	Completed  int64    `json:"completed"`
	Flagged    int64    `json:"flagged"`
	AvgScore   *float64 `json:"avg_score"`
	InProgress int64    `json:"in_progress"`
}

// IsNotFoundError reports whether err is gorm's record-not-found
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
