package models

import (
	"time"

	"gorm.io/datatypes"
)

type ViolationType string

const (
	ViolationWindowBlur     ViolationType = "window_blur"
	ViolationTabSwitch      ViolationType = "tab_switch"
	ViolationFullscreenExit ViolationType = "fullscreen_exit"
	ViolationDevTools       ViolationType = "devtools"
	ViolationCopyPaste      ViolationType = "copy_paste"
	ViolationRightClick     ViolationType = "right_click"
)

type CompletionReason string

const (
	CompletionSubmitted          CompletionReason = "submitted"
	CompletionIntegrityViolation CompletionReason = "integrity_violation"
)

type SessionState string

const (
	SessionCreated    SessionState = "created"
	SessionInProgress SessionState = "in_progress"
	SessionCompleted  SessionState = "completed"
)

// IntegrityViolation is one client-observed event in the append-only log.
type IntegrityViolation struct {
	Type      ViolationType  `json:"type" validate:"required,violation_type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// QuizSession is one student's attempt at the quiz attached to a submission.
type QuizSession struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AssignmentID uint   `json:"assignment_id" gorm:"not null;uniqueIndex:idx_quiz_sessions_owner"`
	SubmissionID uint   `json:"submission_id" gorm:"not null;uniqueIndex:idx_quiz_sessions_owner"`
	UserID       string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_quiz_sessions_owner"`

	// Frozen at creation
	Questions datatypes.JSONSlice[SessionQuestion] `json:"questions" gorm:"type:jsonb"`

	// Progress
	CurrentQuestion int               `json:"current_question" gorm:"default:0"`
	Answers         datatypes.JSONMap `json:"answers" gorm:"type:jsonb"`
	TimeRemaining   int               `json:"time_remaining" gorm:"default:0"`
	WindowBlurCount int               `json:"window_blur_count" gorm:"default:0"`

	// Lifecycle
	AttemptStarted   bool              `json:"attempt_started" gorm:"default:false"`
	StartedAt        *time.Time        `json:"started_at"`
	AttemptCompleted bool              `json:"attempt_completed" gorm:"default:false;index"`
	CompletedAt      *time.Time        `json:"completed_at"`
	CompletionReason *CompletionReason `json:"completion_reason" gorm:"size:32"`

	// Integrity
	IntegrityViolations datatypes.JSONSlice[IntegrityViolation] `json:"integrity_violations" gorm:"type:jsonb"`
	IntegrityFlagged    bool                                    `json:"integrity_flagged" gorm:"default:false"`

	// Scoring
	FinalScore  *float64 `json:"final_score"`
	ClientScore *float64 `json:"client_score"`
	MaxScore    int      `json:"max_score" gorm:"default:0"`

	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

// State derives the lifecycle state from the stored flags.
func (s *QuizSession) State() SessionState {
	switch {
	case s.AttemptCompleted:
		return SessionCompleted
	case s.AttemptStarted:
		return SessionInProgress
	default:
		return SessionCreated
	}
}

// TotalPoints sums the points of the frozen question set.
func (s *QuizSession) TotalPoints() int {
	total := 0
	for _, sq := range s.Questions {
		total += sq.Question.EffectivePoints()
	}
	return total
}

// WithoutAnswerKey returns a copy safe to show a student mid-attempt:
// correctness flags and explanations are removed from every question.
func (s *QuizSession) WithoutAnswerKey() *QuizSession {
	out := *s
	questions := make([]SessionQuestion, len(s.Questions))
	for i, sq := range s.Questions {
		q := sq.Question
		q.Explanation = nil
		q.Options = make([]Option, len(sq.Question.Options))
		for j, opt := range sq.Question.Options {
			q.Options[j] = Option{Text: opt.Text}
		}
		questions[i] = SessionQuestion{Source: sq.Source, Question: q}
	}
	out.Questions = questions
	return &out
}
