package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/storage"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"gorm.io/gorm"
)

// JobQueue hands submission jobs to the background worker
type JobQueue interface {
	Enqueue(ctx context.Context, job events.SubmissionJob) error
}

type submissionProcessor struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	gateway   QuestionGateway
	store     storage.BlobStore
	settings  SettingsService
	sessions  SessionService
	queue     JobQueue
}

func NewSubmissionProcessor(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	gw QuestionGateway,
	store storage.BlobStore,
	settings SettingsService,
	sessions SessionService,
	queue JobQueue,
) SubmissionProcessor {
	return &submissionProcessor{
		repo:      repo,
		logger:    logger,
		validator: validator,
		gateway:   gw,
		store:     store,
		settings:  settings,
		sessions:  sessions,
		queue:     queue,
	}
}

// HandleSubmissionEvent mirrors the host rows and queues generation for submitted work
func (p *submissionProcessor) HandleSubmissionEvent(ctx context.Context, req *SubmissionEventRequest) (*SubmissionEventResult, error) {
	assignment := &req.Assignment
	submission := &req.Submission

	if submission.AssignmentID == 0 {
		submission.AssignmentID = assignment.ID
	}
	if assignment.MaxGrade == 0 {
		assignment.MaxGrade = 100
	}
	if assignment.ID == 0 || submission.ID == 0 || submission.AssignmentID != assignment.ID {
		return nil, NewValidationError("submission", "must reference the assignment it belongs to", submission.ID)
	}
	if submission.UserID == "" {
		return nil, NewValidationError("submission.user_id", "is required", submission.UserID)
	}
	if err := p.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	p.logger.Info("Submission event received",
		"assignment_id", assignment.ID,
		"submission_id", submission.ID,
		"user_id", submission.UserID,
		"status", submission.Status)

	if err := p.repo.Assignment().Upsert(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}
	if err := p.repo.Submission().Upsert(ctx, nil, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	if submission.Status != models.SubmissionSubmitted {
		return &SubmissionEventResult{Reason: "submission is not submitted"}, nil
	}

	settings, err := p.settings.Get(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return &SubmissionEventResult{Reason: "quiz is not enabled"}, nil
	}

	existing, err := p.repo.Task().Get(ctx, nil, assignment.ID, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if existing != nil && !existing.Status.IsTerminal() {
		return &SubmissionEventResult{Queued: true, Reason: "already queued", Task: existing}, nil
	}

	task, err := p.repo.Task().Enqueue(ctx, nil, assignment.ID, submission.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record task: %w", err)
	}

	job := events.SubmissionJob{SubmissionID: submission.ID, AssignmentID: assignment.ID}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		if markErr := p.repo.Task().MarkFailed(ctx, nil, task.ID, err.Error()); markErr != nil {
			p.logger.Error("Failed to mark task failed", "task_id", task.ID, "error", markErr)
		}
		return nil, err
	}

	p.logger.Info("Submission task queued", "task_id", task.ID, "attempts", task.Attempts)
	return &SubmissionEventResult{Queued: true, Task: task}, nil
}

// ProcessSubmission generates and stores the submission's questions and returns how many were stored.
// A submission without text or files yields zero questions and no error.
func (p *submissionProcessor) ProcessSubmission(ctx context.Context, assignmentID, submissionID uint) (int, error) {
	submission, err := p.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil || submission.AssignmentID != assignmentID {
		return 0, ErrSubmissionNotFound
	}

	settings, err := p.settings.Get(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	if settings.SubmissionQuestions == 0 {
		p.logger.Info("Submission questions not used by this quiz", "submission_id", submissionID)
		return 0, nil
	}
	if !submission.HasContent() {
		p.logger.Info("Submission has no content to analyze", "submission_id", submissionID)
		return 0, nil
	}

	files, err := loadFiles(ctx, p.store, submission.Attachments, p.logger)
	if err != nil {
		return 0, err
	}

	set, err := p.gateway.AnalyzeSubmission(ctx, submission.OnlineText, settings.QuestionsToGenerate, files)
	if err != nil {
		return 0, fmt.Errorf("failed to analyze submission: %w", err)
	}

	valid, discarded := filterValidQuestions(p.validator, set.Questions, p.logger)
	if len(valid) == 0 {
		return 0, ErrNoValidQuestions
	}

	rows := make([]*models.SubmissionQuestion, 0, len(valid))
	for i, q := range valid {
		rows = append(rows, models.NewSubmissionQuestion(assignmentID, submissionID, i, q))
	}
	err = p.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return p.repo.Question().ReplaceSubmission(ctx, tx, assignmentID, submissionID, rows)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save submission questions: %w", err)
	}

	p.logger.Info("Submission questions generated",
		"submission_id", submissionID,
		"generated", len(rows),
		"discarded", discarded,
		"from_cache", set.FromCache)
	return len(rows), nil
}

// RunTask is the worker body: it records the task outcome and opens the quiz session
func (p *submissionProcessor) RunTask(ctx context.Context, assignmentID, submissionID uint) error {
	task, err := p.repo.Task().Get(ctx, nil, assignmentID, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		if task, err = p.repo.Task().Enqueue(ctx, nil, assignmentID, submissionID); err != nil {
			return fmt.Errorf("failed to record task: %w", err)
		}
	}

	if err := p.repo.Task().MarkRunning(ctx, nil, task.ID); err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}

	generated, procErr := p.ProcessSubmission(ctx, assignmentID, submissionID)
	if procErr != nil {
		metrics.TasksProcessed.WithLabelValues(string(models.TaskFailed)).Inc()
		if markErr := p.repo.Task().MarkFailed(ctx, nil, task.ID, procErr.Error()); markErr != nil {
			p.logger.Error("Failed to mark task failed", "task_id", task.ID, "error", markErr)
		}
		if errors.Is(procErr, ErrSubmissionNotFound) {
			return procErr
		}
	} else {
		if err := p.repo.Task().MarkCompleted(ctx, nil, task.ID, generated); err != nil {
			return fmt.Errorf("failed to mark task completed: %w", err)
		}
		metrics.TasksProcessed.WithLabelValues(string(models.TaskCompleted)).Inc()
	}

	// the instructor bank can still fill a quiz when submission questions failed
	if err := p.openSession(ctx, assignmentID, submissionID); err != nil {
		if procErr != nil {
			p.logger.Error("Failed to open quiz session after failed task", "submission_id", submissionID, "error", err)
			return procErr
		}
		return err
	}
	return procErr
}

func (p *submissionProcessor) openSession(ctx context.Context, assignmentID, submissionID uint) error {
	submission, err := p.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		return fmt.Errorf("failed to reload submission: %w", err)
	}
	if submission == nil {
		return ErrSubmissionNotFound
	}

	session, err := p.sessions.Create(ctx, assignmentID, submissionID, submission.UserID)
	if err != nil {
		return fmt.Errorf("failed to create quiz session: %w", err)
	}
	if session == nil {
		p.logger.Info("No quiz required for submission", "submission_id", submissionID)
	}
	return nil
}

// Handle adapts RunTask to the task queue router
func (p *submissionProcessor) Handle(ctx context.Context, job events.SubmissionJob) error {
	return p.RunTask(context.WithoutCancel(ctx), job.AssignmentID, job.SubmissionID)
}
