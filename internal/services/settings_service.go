package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type settingsService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSettingsService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) SettingsService {
	return &settingsService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *settingsService) Get(ctx context.Context, assignmentID uint) (*models.QuizSettings, error) {
	settings, err := s.repo.Settings().GetByAssignment(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz settings: %w", err)
	}
	if settings == nil {
		return models.DefaultQuizSettings(assignmentID), nil
	}
	return settings, nil
}

func (s *settingsService) Save(ctx context.Context, settings *models.QuizSettings) (*models.QuizSettings, error) {
	s.logger.Info("Saving quiz settings",
		"assignment_id", settings.AssignmentID,
		"enabled", settings.Enabled)

	if err := s.validator.Validate(settings); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, settings.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}

	if err := s.repo.Settings().Upsert(ctx, nil, settings); err != nil {
		return nil, fmt.Errorf("failed to save quiz settings: %w", err)
	}

	return s.Get(ctx, settings.AssignmentID)
}
