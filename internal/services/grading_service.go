package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/gradebook"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	mirror    gradebook.Mirror
	publisher events.EventPublisher
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, mirror gradebook.Mirror, publisher events.EventPublisher) GradingService {
	if mirror == nil {
		mirror = gradebook.NewNoopMirror()
	}
	return &gradingService{
		repo:      repo,
		logger:    logger,
		mirror:    mirror,
		publisher: publisher,
	}
}

// Save stores one grade. Gradebook mirror failures are recorded on the row, not returned.
func (s *gradingService) Save(ctx context.Context, assignmentID uint, userID string, grade *float64, graderID string) (*models.GradeRecord, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, assignment, userID, grade, graderID)
}

// BulkSave applies every entry independently and never stops at the first failure
func (s *gradingService) BulkSave(ctx context.Context, assignmentID uint, grades map[string]*float64, graderID string) (*BulkGradeResult, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(grades))
	for userID := range grades {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	result := &BulkGradeResult{}
	for _, userID := range userIDs {
		record, err := s.save(ctx, assignment, userID, grades[userID], graderID)
		result.add(userID, record, err)
	}

	s.logger.Info("Bulk grades saved",
		"assignment_id", assignmentID,
		"succeeded", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}

// AutoGradeFromQuiz converts each completed quiz score to the assignment's grade scale
func (s *gradingService) AutoGradeFromQuiz(ctx context.Context, assignmentID uint, graderID string) (*BulkGradeResult, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session().ListCompleted(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}

	// latest completed session per user
	latest := make(map[string]*models.QuizSession, len(sessions))
	order := make([]string, 0, len(sessions))
	for _, session := range sessions {
		if _, seen := latest[session.UserID]; !seen {
			order = append(order, session.UserID)
		}
		latest[session.UserID] = session
	}

	result := &BulkGradeResult{}
	for _, userID := range order {
		session := latest[userID]
		grade, err := QuizGrade(session, assignment.MaxGrade)
		if err != nil {
			result.add(userID, nil, err)
			continue
		}
		record, err := s.save(ctx, assignment, userID, &grade, graderID)
		result.add(userID, record, err)
	}

	s.logger.Info("Auto grading completed",
		"assignment_id", assignmentID,
		"graded", result.Succeeded,
		"failed", result.Failed)

	if s.publisher != nil {
		event := events.NewGradesAutoAssignedEvent(events.GradesAutoAssignedEvent{
			AssignmentID: assignmentID,
			GraderID:     graderID,
			Graded:       result.Succeeded,
			Failed:       result.Failed,
		})
		if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
		}
	}
	return result, nil
}

func (s *gradingService) List(ctx context.Context, assignmentID uint) ([]*models.GradeRecord, error) {
	records, err := s.repo.Grade().ListByAssignment(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return records, nil
}

// ExportGrades renders grades next to quiz outcomes as an xlsx workbook
func (s *gradingService) ExportGrades(ctx context.Context, assignmentID uint) ([]byte, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	records, err := s.List(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.Session().ListCompleted(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	byUser := make(map[string]*models.QuizSession, len(sessions))
	for _, session := range sessions {
		byUser[session.UserID] = session
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Grades"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"User ID", "Grade", "Max Grade", "Quiz Score", "Quiz Max Score",
		"Flagged", "Completed At", "Gradebook Synced", "Sync Error",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, record := range records {
		row := []interface{}{record.UserID, "", assignment.MaxGrade, "", "", "", "", record.GradebookSynced, ""}
		if record.Grade != nil {
			row[1] = *record.Grade
		}
		if session, ok := byUser[record.UserID]; ok {
			if session.FinalScore != nil {
				row[3] = *session.FinalScore
			}
			row[4] = session.MaxScore
			row[5] = session.IntegrityFlagged
			if session.CompletedAt != nil {
				row[6] = session.CompletedAt.Format("2006-01-02 15:04:05")
			}
		}
		if record.SyncError != nil {
			row[8] = *record.SyncError
		}

		for colIndex, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buffer.Bytes(), nil
}

// QuizGrade scales a completed session's score to maxGrade, rounded to two decimals and clamped.
func QuizGrade(session *models.QuizSession, maxGrade float64) (float64, error) {
	if session.FinalScore == nil {
		return 0, fmt.Errorf("session %d has no final score", session.ID)
	}
	total := session.TotalPoints()
	if total == 0 {
		return 0, ErrZeroTotalPoints
	}

	ceiling := decimal.NewFromFloat(maxGrade)
	grade := decimal.NewFromFloat(*session.FinalScore).
		Div(decimal.NewFromInt(int64(total))).
		Mul(ceiling).
		Round(2)

	if grade.IsNegative() {
		grade = decimal.Zero
	}
	if grade.GreaterThan(ceiling) {
		grade = ceiling
	}
	return grade.InexactFloat64(), nil
}

// ===== HELPERS =====

func (s *gradingService) save(ctx context.Context, assignment *models.Assignment, userID string, grade *float64, graderID string) (*models.GradeRecord, error) {
	if userID == "" {
		return nil, NewValidationError("user_id", "is required", userID)
	}
	if grade != nil && (*grade < 0 || *grade > assignment.MaxGrade) {
		return nil, fmt.Errorf("%w: %.2f is not within [0, %.2f]", ErrInvalidGrade, *grade, assignment.MaxGrade)
	}

	record := &models.GradeRecord{
		AssignmentID: assignment.ID,
		UserID:       userID,
		Grade:        grade,
		GraderID:     graderID,
	}
	if err := s.repo.Grade().Upsert(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}
	// the upsert may not report the id of an updated row
	stored, err := s.repo.Grade().Get(ctx, nil, assignment.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload grade: %w", err)
	}
	if stored != nil {
		record = stored
	}

	s.mirrorGrade(ctx, assignment, record)

	if s.publisher != nil {
		event := events.NewGradeSavedEvent(events.GradeSavedEvent{
			AssignmentID: assignment.ID,
			UserID:       userID,
			Grade:        grade,
			GraderID:     graderID,
		})
		if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
		}
	}
	return record, nil
}

// mirrorGrade pushes the grade to the host gradebook and records the outcome on the row
func (s *gradingService) mirrorGrade(ctx context.Context, assignment *models.Assignment, record *models.GradeRecord) {
	update := gradebook.GradeUpdate{
		UserID:   record.UserID,
		Grade:    record.Grade,
		MaxGrade: assignment.MaxGrade,
		Comment:  "Graded by quiz service",
	}
	if assignment.LineItemURL != nil {
		update.LineItemURL = *assignment.LineItemURL
	}

	var syncErr *string
	if err := s.mirror.PushGrade(ctx, update); err != nil {
		msg := err.Error()
		syncErr = &msg
		if errors.Is(err, gradebook.ErrNoLineItem) {
			s.logger.Debug("Grade not mirrored", "assignment_id", assignment.ID, "reason", msg)
		} else {
			s.logger.Warn("Failed to mirror grade to gradebook",
				"assignment_id", assignment.ID,
				"user_id", record.UserID,
				"error", err)
		}
	}

	if err := s.repo.Grade().UpdateSyncStatus(ctx, nil, record.ID, syncErr == nil, syncErr); err != nil {
		s.logger.Error("Failed to record gradebook sync status", "grade_id", record.ID, "error", err)
		return
	}
	record.GradebookSynced = syncErr == nil
	record.SyncError = syncErr
}

func (s *gradingService) getAssignment(ctx context.Context, assignmentID uint) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	return assignment, nil
}

func (r *BulkGradeResult) add(userID string, record *models.GradeRecord, err error) {
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, GradeError{UserID: userID, Error: err.Error()})
		return
	}
	r.Succeeded++
	r.Grades = append(r.Grades, record)
}
