package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

type AssignmentService interface {
	Upsert(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	Get(ctx context.Context, assignmentID uint) (*models.Assignment, error)
}

type SettingsService interface {
	// Get returns the stored settings or the defaults for an assignment that never saved any
	Get(ctx context.Context, assignmentID uint) (*models.QuizSettings, error)
	Save(ctx context.Context, settings *models.QuizSettings) (*models.QuizSettings, error)
}

type QuestionService interface {
	CheckInstructions(ctx context.Context, assignmentID uint) (*gateway.InstructionCheck, error)
	GenerateInstructorQuestions(ctx context.Context, assignmentID uint, req *GenerateQuestionsRequest, userID string) (*GenerateQuestionsResult, error)
	ListInstructorQuestions(ctx context.Context, assignmentID uint) ([]*models.InstructorQuestion, error)
	ReplaceInstructorQuestions(ctx context.Context, assignmentID uint, questions []models.Question, userID string) ([]*models.InstructorQuestion, error)
	UpdateInstructorQuestion(ctx context.Context, assignmentID, questionID uint, question *models.Question) (*models.InstructorQuestion, error)
	DeleteInstructorQuestion(ctx context.Context, assignmentID, questionID uint) error
}

type SessionService interface {
	Create(ctx context.Context, assignmentID, submissionID uint, userID string) (*models.QuizSession, error)
	Start(ctx context.Context, sessionID uint, userID string) (*models.QuizSession, error)
	Update(ctx context.Context, sessionID uint, userID string, req *SessionUpdate) (*models.QuizSession, error)
	LogViolation(ctx context.Context, sessionID uint, userID string, req *ViolationRequest) (*ViolationResult, error)
	Complete(ctx context.Context, sessionID uint, userID string, req *CompleteRequest) (*models.QuizSession, error)

	Get(ctx context.Context, sessionID uint, userID string, role models.UserRole) (*models.QuizSession, error)
	GetBySubmission(ctx context.Context, assignmentID, submissionID uint) (*models.QuizSession, error)
	ListByAssignment(ctx context.Context, assignmentID uint, filters repositories.SessionFilters) (*SessionListResponse, error)
}

type SubmissionProcessor interface {
	HandleSubmissionEvent(ctx context.Context, req *SubmissionEventRequest) (*SubmissionEventResult, error)
	ProcessSubmission(ctx context.Context, assignmentID, submissionID uint) (int, error)
	RunTask(ctx context.Context, assignmentID, submissionID uint) error
	Handle(ctx context.Context, job events.SubmissionJob) error
}

type TaskService interface {
	GetStatus(ctx context.Context, assignmentID, submissionID uint) (*TaskStatusResponse, error)
	List(ctx context.Context, filters repositories.TaskFilters) ([]*models.SubmissionTask, error)
	// ReapStale requeues tasks stuck in queued or running for longer than staleAfter,
	// failing those that already used every attempt.
	ReapStale(ctx context.Context, staleAfter time.Duration) (*ReapResult, error)
}

type GradingService interface {
	Save(ctx context.Context, assignmentID uint, userID string, grade *float64, graderID string) (*models.GradeRecord, error)
	BulkSave(ctx context.Context, assignmentID uint, grades map[string]*float64, graderID string) (*BulkGradeResult, error)
	AutoGradeFromQuiz(ctx context.Context, assignmentID uint, graderID string) (*BulkGradeResult, error)
	List(ctx context.Context, assignmentID uint) ([]*models.GradeRecord, error)
	ExportGrades(ctx context.Context, assignmentID uint) ([]byte, error)
}

// QuestionGateway is the slice of the gateway client the services call.
type QuestionGateway interface {
	CheckInstructions(ctx context.Context, instructions string) (*gateway.InstructionCheck, error)
	GenerateQuestions(ctx context.Context, instructions string, count int, files []gateway.File) (*gateway.QuestionSet, error)
	AnalyzeSubmission(ctx context.Context, submissionText string, count int, files []gateway.File) (*gateway.QuestionSet, error)
}

// ===== REQUEST / RESPONSE TYPES =====

type GenerateQuestionsRequest struct {
	// Zero means the assignment's questions_to_generate setting
	Count int `json:"count" validate:"omitempty,min=1,max=10"`
}

type GenerateQuestionsResult struct {
	Questions []*models.InstructorQuestion `json:"questions"`
	Generated int                          `json:"generated"`
	Discarded int                          `json:"discarded"`
	FromCache bool                         `json:"from_cache"`
}

// SessionUpdate carries the only fields a client may change on an open session.
type SessionUpdate struct {
	CurrentQuestion     *int                        `json:"current_question" validate:"omitempty,min=0"`
	Answers             map[string]interface{}      `json:"answers"`
	TimeRemaining       *int                        `json:"time_remaining"`
	WindowBlurCount     *int                        `json:"window_blur_count" validate:"omitempty,min=0"`
	IntegrityViolations []models.IntegrityViolation `json:"integrity_violations" validate:"omitempty,dive"`
}

type ViolationRequest struct {
	Type models.ViolationType `json:"violation_type" validate:"required,violation_type"`
	Data map[string]any       `json:"violation_data"`
}

type ViolationResult struct {
	Session *models.QuizSession `json:"session"`
	// Ignored is set when the session was already completed
	Ignored bool `json:"ignored"`
	Flagged bool `json:"flagged"`
}

type CompleteRequest struct {
	FinalAnswers map[string]interface{} `json:"final_answers"`
	FinalScore   *float64               `json:"final_score"`
}

type SessionListResponse struct {
	Sessions []*models.QuizSession     `json:"sessions"`
	Total    int64                     `json:"total"`
	Stats    *repositories.SessionStats `json:"stats"`
}

type SubmissionEventRequest struct {
	Assignment models.Assignment `json:"assignment"`
	Submission models.Submission `json:"submission"`
}

type SubmissionEventResult struct {
	Queued bool                   `json:"queued"`
	Reason string                 `json:"reason,omitempty"`
	Task   *models.SubmissionTask `json:"task,omitempty"`
}

type TaskStatusResponse struct {
	Status             models.TaskStatus `json:"status"`
	QuestionsGenerated int               `json:"questions_generated"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	ErrorMessage       *string           `json:"error_message,omitempty"`
	Attempts           int               `json:"attempts"`
}

type ReapResult struct {
	Requeued int `json:"requeued"`
	Failed   int `json:"failed"`
}

type GradeError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

type BulkGradeResult struct {
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Errors    []GradeError          `json:"errors,omitempty"`
	Grades    []*models.GradeRecord `json:"grades,omitempty"`
}
