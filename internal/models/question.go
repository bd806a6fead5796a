package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type QuestionSource string

const (
	SourceInstructor QuestionSource = "instructor"
	SourceSubmission QuestionSource = "submission"
)

const DefaultQuestionPoints = 10

// Option is the single answer-option shape used after normalization.
// Correctness travels with the option, never as a positional index.
type Option struct {
	Text        string  `json:"text" validate:"required"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation,omitempty"`
}

// Question is the value shape shared by both question pools and by frozen sessions.
type Question struct {
	Type        QuestionType `json:"type" validate:"required,question_type"`
	Text        string       `json:"text" validate:"required,max=2000"`
	Options     []Option     `json:"options" validate:"omitempty,dive"`
	Points      int          `json:"points" validate:"omitempty,min=1,max=100"`
	Explanation *string      `json:"explanation,omitempty"`
}

// EffectivePoints returns the point value, falling back to the default when unset.
func (q *Question) EffectivePoints() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// CorrectOptionIndex returns the index of the first correct option or -1.
func (q *Question) CorrectOptionIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// InstructorQuestion is a question in the per-assignment bank.
type InstructorQuestion struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssignmentID uint         `json:"assignment_id" gorm:"not null;index"`
	Position     int          `json:"position" gorm:"not null;default:0"`
	Type         QuestionType `json:"type" gorm:"not null;size:32"`
	Text         string       `json:"text" gorm:"type:text;not null"`

	Options     datatypes.JSONSlice[Option] `json:"options" gorm:"type:jsonb"`
	Points      int                         `json:"points" gorm:"not null;default:10"`
	Explanation *string                     `json:"explanation" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (InstructorQuestion) TableName() string {
	return "instructor_questions"
}

// ToQuestion converts the row into the shared value shape.
func (iq *InstructorQuestion) ToQuestion() Question {
	return Question{
		Type:        iq.Type,
		Text:        iq.Text,
		Options:     append([]Option(nil), iq.Options...),
		Points:      iq.Points,
		Explanation: iq.Explanation,
	}
}

// NewInstructorQuestion builds a bank row from a question value.
func NewInstructorQuestion(assignmentID uint, position int, q Question, createdBy string) *InstructorQuestion {
	return &InstructorQuestion{
		AssignmentID: assignmentID,
		Position:     position,
		Type:         q.Type,
		Text:         q.Text,
		Options:      datatypes.NewJSONSlice(q.Options),
		Points:       q.EffectivePoints(),
		Explanation:  q.Explanation,
		CreatedBy:    createdBy,
	}
}

// SubmissionQuestion is a question generated from one student's submission.
type SubmissionQuestion struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssignmentID uint         `json:"assignment_id" gorm:"not null;index:idx_submission_questions_owner"`
	SubmissionID uint         `json:"submission_id" gorm:"not null;index:idx_submission_questions_owner"`
	Position     int          `json:"position" gorm:"not null;default:0"`
	Type         QuestionType `json:"type" gorm:"not null;size:32"`
	Text         string       `json:"text" gorm:"type:text;not null"`

	Options     datatypes.JSONSlice[Option] `json:"options" gorm:"type:jsonb"`
	Points      int                         `json:"points" gorm:"not null;default:10"`
	Explanation *string                     `json:"explanation" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (SubmissionQuestion) TableName() string {
	return "submission_questions"
}

func (sq *SubmissionQuestion) ToQuestion() Question {
	return Question{
		Type:        sq.Type,
		Text:        sq.Text,
		Options:     append([]Option(nil), sq.Options...),
		Points:      sq.Points,
		Explanation: sq.Explanation,
	}
}

func NewSubmissionQuestion(assignmentID, submissionID uint, position int, q Question) *SubmissionQuestion {
	return &SubmissionQuestion{
		AssignmentID: assignmentID,
		SubmissionID: submissionID,
		Position:     position,
		Type:         q.Type,
		Text:         q.Text,
		Options:      datatypes.NewJSONSlice(q.Options),
		Points:       q.EffectivePoints(),
		Explanation:  q.Explanation,
	}
}

// SessionQuestion is a question frozen into a session together with its pool.
type SessionQuestion struct {
	Source   QuestionSource `json:"source"`
	Question Question       `json:"question"`
}

// ParseBoolAnswer accepts true, "true", 1 and "1" as true and their false
// counterparts as false. ok is false for anything else.
func ParseBoolAnswer(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case float64:
		return boolFromNumber(t)
	case float32:
		return boolFromNumber(float64(t))
	case int:
		return boolFromNumber(float64(t))
	case int64:
		return boolFromNumber(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return boolFromNumber(f)
		}
	}
	return false, false
}

func boolFromNumber(f float64) (bool, bool) {
	switch f {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}
