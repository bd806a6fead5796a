package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// assignmentService keeps the local mirror of host assignments
type assignmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssignmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AssignmentService {
	return &assignmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *assignmentService) Upsert(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if assignment.ID == 0 {
		return nil, NewValidationError("id", "is required", assignment.ID)
	}
	if assignment.MaxGrade == 0 {
		assignment.MaxGrade = 100
	}
	if err := s.validator.ValidateStruct(assignment); err != nil {
		return nil, err
	}

	if err := s.repo.Assignment().Upsert(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}

	s.logger.Debug("Assignment mirrored", "assignment_id", assignment.ID)
	return s.Get(ctx, assignment.ID)
}

func (s *assignmentService) Get(ctx context.Context, assignmentID uint) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	return assignment, nil
}
