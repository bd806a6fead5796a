package models

import (
	"time"
)

const (
	DefaultQuestionsToGenerate = 5
	DefaultTimePerQuestion     = 20
	DefaultMaxWindowBlurs      = 3
)

// QuizSettings is the per-assignment quiz configuration.
type QuizSettings struct {
	AssignmentID uint `json:"assignment_id" gorm:"primaryKey"`

	// Generation
	QuestionsToGenerate int `json:"questions_to_generate" gorm:"not null;default:5" validate:"min=1,max=10"`
	InstructorQuestions int `json:"instructor_questions" gorm:"not null;default:0" validate:"min=0,max=20"`
	SubmissionQuestions int `json:"submission_questions" gorm:"not null;default:0" validate:"min=0,max=20"`

	// Presentation
	RandomizeAnswers bool `json:"randomize_answers" gorm:"default:false"`
	TimePerQuestion  int  `json:"time_per_question" gorm:"not null;default:20" validate:"time_per_question"`
	ShowCountdown    bool `json:"show_countdown" gorm:"not null"`

	// Integrity
	MaxWindowBlurs int `json:"max_window_blurs" gorm:"not null;default:3" validate:"min=1,max=20"`

	Enabled bool `json:"enabled" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

// TotalQuizQuestions is the number of questions a session is built from.
func (s *QuizSettings) TotalQuizQuestions() int {
	return s.InstructorQuestions + s.SubmissionQuestions
}

// DefaultQuizSettings returns the settings of an assignment that never saved any.
func DefaultQuizSettings(assignmentID uint) *QuizSettings {
	return &QuizSettings{
		AssignmentID:        assignmentID,
		QuestionsToGenerate: DefaultQuestionsToGenerate,
		TimePerQuestion:     DefaultTimePerQuestion,
		ShowCountdown:       true,
		MaxWindowBlurs:      DefaultMaxWindowBlurs,
	}
}

// ValidTimesPerQuestion lists the allowed per-question timer values in seconds.
var ValidTimesPerQuestion = []int{10, 15, 20, 25, 30}
