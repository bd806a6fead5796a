package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the domain events the quiz service emits
type EventType string

const (
	// Session events
	EventSessionCreated   EventType = "quiz.session.created"
	EventSessionCompleted EventType = "quiz.session.completed"
	EventSessionFlagged   EventType = "quiz.session.flagged"

	// Grading events
	EventGradesAutoAssigned EventType = "grading.auto_completed"
	EventGradeSaved         EventType = "grading.saved"
)

const (
	eventSource  = "quiz-service"
	eventVersion = "1.0"
)

// QuizEvent is the envelope for every published domain event
type QuizEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionCreatedEvent struct {
	SessionID     uint   `json:"session_id"`
	AssignmentID  uint   `json:"assignment_id"`
	SubmissionID  uint   `json:"submission_id"`
	UserID        string `json:"user_id"`
	QuestionCount int    `json:"question_count"`
}

type SessionCompletedEvent struct {
	SessionID    uint      `json:"session_id"`
	AssignmentID uint      `json:"assignment_id"`
	UserID       string    `json:"user_id"`
	FinalScore   float64   `json:"final_score"`
	MaxScore     int       `json:"max_score"`
	Reason       string    `json:"reason"`
	Flagged      bool      `json:"flagged"`
	CompletedAt  time.Time `json:"completed_at"`
}

type SessionFlaggedEvent struct {
	SessionID       uint   `json:"session_id"`
	AssignmentID    uint   `json:"assignment_id"`
	UserID          string `json:"user_id"`
	WindowBlurCount int    `json:"window_blur_count"`
	ViolationCount  int    `json:"violation_count"`
}

type GradesAutoAssignedEvent struct {
	AssignmentID uint   `json:"assignment_id"`
	GraderID     string `json:"grader_id"`
	Graded       int    `json:"graded"`
	Failed       int    `json:"failed"`
}

type GradeSavedEvent struct {
	AssignmentID uint     `json:"assignment_id"`
	UserID       string   `json:"user_id"`
	Grade        *float64 `json:"grade"`
	GraderID     string   `json:"grader_id"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewSessionCreatedEvent(data SessionCreatedEvent) *QuizEvent {
	return newEvent(EventSessionCreated, data)
}

func NewSessionCompletedEvent(data SessionCompletedEvent) *QuizEvent {
	return newEvent(EventSessionCompleted, data)
}

func NewSessionFlaggedEvent(data SessionFlaggedEvent) *QuizEvent {
	return newEvent(EventSessionFlagged, data)
}

func NewGradesAutoAssignedEvent(data GradesAutoAssignedEvent) *QuizEvent {
	return newEvent(EventGradesAutoAssigned, data)
}

func NewGradeSavedEvent(data GradeSavedEvent) *QuizEvent {
	return newEvent(EventGradeSaved, data)
}

// GenerateEventID returns a random event identifier
func GenerateEventID() string {
	return uuid.NewString()
}
