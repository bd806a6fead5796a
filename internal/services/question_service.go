package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/storage"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	gateway   QuestionGateway
	store     storage.BlobStore
	settings  SettingsService
}

func NewQuestionService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	gw QuestionGateway,
	store storage.BlobStore,
	settings SettingsService,
) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		gateway:   gw,
		store:     store,
		settings:  settings,
	}
}

func (s *questionService) CheckInstructions(ctx context.Context, assignmentID uint) (*gateway.InstructionCheck, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(assignment.Instructions) == "" {
		return nil, ErrInstructionsMissing
	}

	check, err := s.gateway.CheckInstructions(ctx, assignment.Instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to check instructions: %w", err)
	}

	s.logger.Info("Instructions checked",
		"assignment_id", assignmentID,
		"is_clear", check.IsClear,
		"from_cache", check.FromCache)
	return check, nil
}

// GenerateInstructorQuestions appends gateway-generated questions to the bank
func (s *questionService) GenerateInstructorQuestions(ctx context.Context, assignmentID uint, req *GenerateQuestionsRequest, userID string) (*GenerateQuestionsResult, error) {
	s.logger.Info("Generating instructor questions",
		"assignment_id", assignmentID,
		"user_id", userID,
		"count", req.Count)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(assignment.Instructions) == "" && len(assignment.Attachments) == 0 {
		return nil, ErrInstructionsMissing
	}

	count := req.Count
	if count == 0 {
		settings, err := s.settings.Get(ctx, assignmentID)
		if err != nil {
			return nil, err
		}
		count = settings.QuestionsToGenerate
	}

	files, err := loadFiles(ctx, s.store, assignment.Attachments, s.logger)
	if err != nil {
		return nil, err
	}

	set, err := s.gateway.GenerateQuestions(ctx, assignment.Instructions, count, files)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	valid, discarded := filterValidQuestions(s.validator, set.Questions, s.logger)
	if len(valid) == 0 {
		return nil, ErrNoValidQuestions
	}

	var rows []*models.InstructorQuestion
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		position, err := s.repo.Question().NextInstructorPosition(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		for i, q := range valid {
			rows = append(rows, models.NewInstructorQuestion(assignmentID, position+i, q, userID))
		}
		return s.repo.Question().CreateInstructorBatch(ctx, tx, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save generated questions: %w", err)
	}

	s.logger.Info("Instructor questions generated",
		"assignment_id", assignmentID,
		"generated", len(rows),
		"discarded", discarded,
		"from_cache", set.FromCache)

	return &GenerateQuestionsResult{
		Questions: rows,
		Generated: len(rows),
		Discarded: discarded,
		FromCache: set.FromCache,
	}, nil
}

func (s *questionService) ListInstructorQuestions(ctx context.Context, assignmentID uint) ([]*models.InstructorQuestion, error) {
	questions, err := s.repo.Question().ListInstructor(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructor questions: %w", err)
	}
	return questions, nil
}

func (s *questionService) ReplaceInstructorQuestions(ctx context.Context, assignmentID uint, questions []models.Question, userID string) ([]*models.InstructorQuestion, error) {
	if err := s.validator.Question().ValidateBatch(questions); err != nil {
		return nil, err
	}
	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}

	rows := make([]*models.InstructorQuestion, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, models.NewInstructorQuestion(assignmentID, i, q, userID))
	}

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.repo.Question().ReplaceInstructor(ctx, tx, assignmentID, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace instructor questions: %w", err)
	}

	s.logger.Info("Instructor questions replaced", "assignment_id", assignmentID, "count", len(rows))
	return s.ListInstructorQuestions(ctx, assignmentID)
}

func (s *questionService) UpdateInstructorQuestion(ctx context.Context, assignmentID, questionID uint, question *models.Question) (*models.InstructorQuestion, error) {
	if err := s.validator.Validate(question); err != nil {
		return nil, err
	}

	row, err := s.repo.Question().GetInstructor(ctx, nil, assignmentID, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if row == nil {
		return nil, ErrQuestionNotFound
	}

	row.Type = question.Type
	row.Text = question.Text
	row.Options = datatypes.NewJSONSlice(question.Options)
	row.Points = question.EffectivePoints()
	row.Explanation = question.Explanation

	if err := s.repo.Question().UpdateInstructor(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return row, nil
}

func (s *questionService) DeleteInstructorQuestion(ctx context.Context, assignmentID, questionID uint) error {
	deleted, err := s.repo.Question().DeleteInstructor(ctx, nil, assignmentID, questionID)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if !deleted {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *questionService) getAssignment(ctx context.Context, assignmentID uint) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	return assignment, nil
}

// filterValidQuestions drops questions that break the option rules and reports how many were dropped
func filterValidQuestions(v *validator.Validator, questions []models.Question, logger *slog.Logger) ([]models.Question, int) {
	valid := make([]models.Question, 0, len(questions))
	for i := range questions {
		if errs := v.Question().ValidateQuestion(fmt.Sprintf("questions[%d].", i), &questions[i]); len(errs) > 0 {
			logger.Warn("Discarding invalid generated question", "index", i, "error", errs.Error())
			continue
		}
		valid = append(valid, questions[i])
	}
	return valid, len(questions) - len(valid)
}
