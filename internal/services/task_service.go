package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// MaxTaskAttempts bounds how often a stale task is put back on the queue
const MaxTaskAttempts = 3

type taskService struct {
	repo   repositories.Repository
	logger *slog.Logger
	queue  JobQueue
	now    func() time.Time
}

func NewTaskService(repo repositories.Repository, logger *slog.Logger, queue JobQueue) TaskService {
	return &taskService{repo: repo, logger: logger, queue: queue, now: time.Now}
}

// GetStatus reports not_found instead of an error when no task was ever queued
func (s *taskService) GetStatus(ctx context.Context, assignmentID, submissionID uint) (*TaskStatusResponse, error) {
	var (
		task *models.SubmissionTask
		err  error
	)
	if assignmentID == 0 {
		task, err = s.repo.Task().GetBySubmission(ctx, nil, submissionID)
	} else {
		task, err = s.repo.Task().Get(ctx, nil, assignmentID, submissionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return &TaskStatusResponse{Status: models.TaskNotFound}, nil
	}

	return &TaskStatusResponse{
		Status:             task.Status,
		QuestionsGenerated: task.QuestionsGenerated,
		CompletedAt:        task.CompletedAt,
		ErrorMessage:       task.ErrorMessage,
		Attempts:           task.Attempts,
	}, nil
}

func (s *taskService) List(ctx context.Context, filters repositories.TaskFilters) ([]*models.SubmissionTask, error) {
	if filters.Limit <= 0 || filters.Limit > 500 {
		filters.Limit = 100
	}
	tasks, err := s.repo.Task().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ReapStale recovers tasks whose worker died or whose queue message was lost.
// Without it HandleSubmissionEvent keeps treating them as in flight.
func (s *taskService) ReapStale(ctx context.Context, staleAfter time.Duration) (*ReapResult, error) {
	cutoff := s.now().Add(-staleAfter)
	stale, err := s.List(ctx, repositories.TaskFilters{
		Statuses: []models.TaskStatus{models.TaskQueued, models.TaskRunning},
		Before:   &cutoff,
		Limit:    500,
	})
	if err != nil {
		return nil, err
	}

	result := &ReapResult{}
	for _, task := range stale {
		if task.Attempts >= MaxTaskAttempts {
			msg := fmt.Sprintf("abandoned after %d attempts while %s", task.Attempts, task.Status)
			if err := s.repo.Task().MarkFailed(ctx, nil, task.ID, msg); err != nil {
				return result, fmt.Errorf("failed to fail stale task: %w", err)
			}
			result.Failed++
			continue
		}

		requeued, err := s.repo.Task().Enqueue(ctx, nil, task.AssignmentID, task.SubmissionID)
		if err != nil {
			return result, fmt.Errorf("failed to requeue task: %w", err)
		}
		job := events.SubmissionJob{AssignmentID: task.AssignmentID, SubmissionID: task.SubmissionID}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			if markErr := s.repo.Task().MarkFailed(ctx, nil, requeued.ID, err.Error()); markErr != nil {
				s.logger.Error("Failed to mark task failed", "task_id", requeued.ID, "error", markErr)
			}
			result.Failed++
			continue
		}
		result.Requeued++
	}

	if result.Requeued > 0 || result.Failed > 0 {
		s.logger.Warn("Stale submission tasks reaped", "requeued", result.Requeued, "failed", result.Failed)
	}
	return result, nil
}
