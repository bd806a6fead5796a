package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"gorm.io/datatypes"
)

type sessionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	settings  SettingsService
	selector  *QuestionSelector
	publisher events.EventPublisher
	ops       *ServiceLogger
}

func NewSessionService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	settings SettingsService,
	selector *QuestionSelector,
	publisher events.EventPublisher,
) SessionService {
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		settings:  settings,
		selector:  selector,
		publisher: publisher,
		ops:       NewServiceLogger(logger, LogConfig{Service: "quiz-service", Component: "session"}),
	}
}

// ===== LIFECYCLE =====

// Create returns nil, nil when neither pool yields a question.
func (s *sessionService) Create(ctx context.Context, assignmentID, submissionID uint, userID string) (*models.QuizSession, error) {
	s.logger.Info("Creating quiz session",
		"assignment_id", assignmentID,
		"submission_id", submissionID,
		"user_id", userID)

	existing, err := s.repo.Session().GetByOwner(ctx, nil, assignmentID, submissionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing session: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	submission, err := s.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil || submission.AssignmentID != assignmentID {
		return nil, ErrSubmissionNotFound
	}
	if submission.UserID != userID {
		return nil, NewPermissionError(userID, submissionID, "submission", "quiz", "not owned by user")
	}

	settings, err := s.settings.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrQuizDisabled
	}

	instructorRows, err := s.repo.Question().ListInstructor(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructor questions: %w", err)
	}
	submissionRows, err := s.repo.Question().ListSubmission(ctx, nil, assignmentID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission questions: %w", err)
	}

	instructor := make([]models.Question, 0, len(instructorRows))
	for _, row := range instructorRows {
		instructor = append(instructor, row.ToQuestion())
	}
	generated := make([]models.Question, 0, len(submissionRows))
	for _, row := range submissionRows {
		generated = append(generated, row.ToQuestion())
	}

	selected := s.selector.Select(instructor, generated, settings)
	if len(selected) == 0 {
		s.logger.Info("No questions available, quiz not required",
			"assignment_id", assignmentID,
			"submission_id", submissionID)
		return nil, nil
	}

	session := &models.QuizSession{
		AssignmentID:  assignmentID,
		SubmissionID:  submissionID,
		UserID:        userID,
		Questions:     datatypes.NewJSONSlice(selected),
		Answers:       datatypes.JSONMap{},
		TimeRemaining: settings.TimePerQuestion,
	}
	session.MaxScore = session.TotalPoints()

	if err := s.repo.Session().Create(ctx, nil, session); err != nil {
		// a concurrent create for the same owner wins
		if again, getErr := s.repo.Session().GetByOwner(ctx, nil, assignmentID, submissionID, userID); getErr == nil && again != nil {
			return again, nil
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publish(ctx, events.NewSessionCreatedEvent(events.SessionCreatedEvent{
		SessionID:     session.ID,
		AssignmentID:  assignmentID,
		SubmissionID:  submissionID,
		UserID:        userID,
		QuestionCount: len(selected),
	}))

	s.logger.Info("Quiz session created",
		"session_id", session.ID,
		"questions", len(selected),
		"max_score", session.MaxScore)

	return session, nil
}

// Start is idempotent and never reorders the frozen questions.
func (s *sessionService) Start(ctx context.Context, sessionID uint, userID string) (*models.QuizSession, error) {
	session, err := s.loadOwned(ctx, sessionID, userID, "start")
	if err != nil {
		return nil, err
	}
	if session.AttemptCompleted {
		return nil, ErrSessionCompleted
	}
	if session.AttemptStarted {
		return session, nil
	}

	settings, err := s.settings.Get(ctx, session.AssignmentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session.AttemptStarted = true
	session.StartedAt = &now
	session.TimeRemaining = settings.TimePerQuestion

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Quiz session started", "session_id", session.ID, "user_id", userID)
	return session, nil
}

func (s *sessionService) Update(ctx context.Context, sessionID uint, userID string, req *SessionUpdate) (*models.QuizSession, error) {
	op := s.ops.WithOperation(ctx, "update_session", userID)
	session, err := s.update(ctx, sessionID, userID, req)
	op.LogResult(sessionID, "quiz_session", err)
	return session, err
}

func (s *sessionService) update(ctx context.Context, sessionID uint, userID string, req *SessionUpdate) (*models.QuizSession, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	session, err := s.loadOwned(ctx, sessionID, userID, "update")
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(session); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, session.AssignmentID)
	if err != nil {
		return nil, err
	}

	if req.CurrentQuestion != nil {
		next := *req.CurrentQuestion
		if next >= len(session.Questions) || next < session.CurrentQuestion {
			return nil, fmt.Errorf("%w: %d", ErrInvalidQuestion, next)
		}
		session.CurrentQuestion = next
	}

	if err := mergeAnswers(session, req.Answers); err != nil {
		return nil, err
	}

	if req.TimeRemaining != nil {
		session.TimeRemaining = clamp(*req.TimeRemaining, 0, settings.TimePerQuestion)
	}

	// the counter only moves forward
	if req.WindowBlurCount != nil && *req.WindowBlurCount > session.WindowBlurCount {
		session.WindowBlurCount = *req.WindowBlurCount
	}

	now := time.Now()
	for _, v := range req.IntegrityViolations {
		if v.Timestamp.IsZero() {
			v.Timestamp = now
		}
		session.IntegrityViolations = append(session.IntegrityViolations, v)
	}

	flagged := session.WindowBlurCount >= settings.MaxWindowBlurs
	if flagged {
		s.finalize(session, models.CompletionIntegrityViolation)
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	if flagged {
		s.afterCompletion(ctx, session)
	}
	return session, nil
}

// LogViolation appends to the integrity log. Reaching the blur threshold completes the session flagged.
func (s *sessionService) LogViolation(ctx context.Context, sessionID uint, userID string, req *ViolationRequest) (*ViolationResult, error) {
	op := s.ops.WithOperation(ctx, "log_violation", userID)
	result, err := s.logViolation(ctx, sessionID, userID, req)
	op.LogResult(sessionID, "quiz_session", err)
	return result, err
}

func (s *sessionService) logViolation(ctx context.Context, sessionID uint, userID string, req *ViolationRequest) (*ViolationResult, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	session, err := s.loadOwned(ctx, sessionID, userID, "log violation on")
	if err != nil {
		return nil, err
	}
	if session.AttemptCompleted {
		return &ViolationResult{Session: session, Ignored: true, Flagged: session.IntegrityFlagged}, nil
	}
	if !session.AttemptStarted {
		return nil, ErrSessionNotStarted
	}

	settings, err := s.settings.Get(ctx, session.AssignmentID)
	if err != nil {
		return nil, err
	}

	session.IntegrityViolations = append(session.IntegrityViolations, models.IntegrityViolation{
		Type:      req.Type,
		Data:      req.Data,
		Timestamp: time.Now(),
	})
	if req.Type == models.ViolationWindowBlur {
		session.WindowBlurCount++
	}

	s.logger.Warn("Integrity violation recorded",
		"session_id", session.ID,
		"user_id", userID,
		"type", req.Type,
		"window_blur_count", session.WindowBlurCount)

	flagged := session.WindowBlurCount >= settings.MaxWindowBlurs
	if flagged {
		s.finalize(session, models.CompletionIntegrityViolation)
	}

	ok, err := s.repo.Session().SaveIfOpen(ctx, nil, session)
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		// completed by a concurrent request in the meantime
		current, err := s.repo.Session().GetByID(ctx, nil, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		return &ViolationResult{Session: current, Ignored: true, Flagged: current != nil && current.IntegrityFlagged}, nil
	}

	if flagged {
		s.afterCompletion(ctx, session)
	}
	return &ViolationResult{Session: session, Flagged: flagged}, nil
}

// Complete scores the final answers server side. The client score is kept for comparison only.
func (s *sessionService) Complete(ctx context.Context, sessionID uint, userID string, req *CompleteRequest) (*models.QuizSession, error) {
	op := s.ops.WithOperation(ctx, "complete_session", userID)
	session, err := s.complete(ctx, sessionID, userID, req)
	op.LogResult(sessionID, "quiz_session", err)
	return session, err
}

func (s *sessionService) complete(ctx context.Context, sessionID uint, userID string, req *CompleteRequest) (*models.QuizSession, error) {
	session, err := s.loadOwned(ctx, sessionID, userID, "complete")
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(session); err != nil {
		return nil, err
	}

	if err := mergeAnswers(session, req.FinalAnswers); err != nil {
		return nil, err
	}

	result := s.finalize(session, models.CompletionSubmitted)
	if req.FinalScore != nil {
		session.ClientScore = req.FinalScore
		if *req.FinalScore != float64(result.Score) {
			s.logger.Warn("Client score differs from computed score",
				"session_id", session.ID,
				"client_score", *req.FinalScore,
				"score", result.Score)
		}
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, session)
	return session, nil
}

// ===== QUERIES =====

func (s *sessionService) Get(ctx context.Context, sessionID uint, userID string, role models.UserRole) (*models.QuizSession, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID && !role.CanGrade() {
		return nil, NewPermissionError(userID, sessionID, "quiz_session", "view", "not owned by user")
	}
	return session, nil
}

func (s *sessionService) GetBySubmission(ctx context.Context, assignmentID, submissionID uint) (*models.QuizSession, error) {
	session, err := s.repo.Session().GetBySubmission(ctx, nil, assignmentID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionService) ListByAssignment(ctx context.Context, assignmentID uint, filters repositories.SessionFilters) (*SessionListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}

	sessions, total, err := s.repo.Session().ListByAssignment(ctx, nil, assignmentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	stats, err := s.repo.Session().GetStats(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	return &SessionListResponse{Sessions: sessions, Total: total, Stats: stats}, nil
}

// ===== HELPERS =====

func (s *sessionService) loadOwned(ctx context.Context, sessionID uint, userID, action string) (*models.QuizSession, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, NewPermissionError(userID, sessionID, "quiz_session", action, "not owned by user")
	}
	return session, nil
}

// save maps a lost completion race to ErrSessionCompleted
func (s *sessionService) save(ctx context.Context, session *models.QuizSession) error {
	ok, err := s.repo.Session().SaveIfOpen(ctx, nil, session)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return ErrSessionCompleted
	}
	return nil
}

func (s *sessionService) finalize(session *models.QuizSession, reason models.CompletionReason) ScoreResult {
	result := ScoreAnswers(session.Questions, session.Answers)
	score := float64(result.Score)
	now := time.Now()

	session.FinalScore = &score
	session.MaxScore = result.MaxScore
	session.AttemptCompleted = true
	session.CompletedAt = &now
	session.CompletionReason = &reason
	if reason == models.CompletionIntegrityViolation {
		session.IntegrityFlagged = true
	}
	return result
}

func (s *sessionService) afterCompletion(ctx context.Context, session *models.QuizSession) {
	reason := *session.CompletionReason
	metrics.SessionsCompleted.WithLabelValues(string(reason)).Inc()

	s.logger.Info("Quiz session completed",
		"session_id", session.ID,
		"user_id", session.UserID,
		"reason", reason,
		"final_score", *session.FinalScore,
		"max_score", session.MaxScore)

	s.publish(ctx, events.NewSessionCompletedEvent(events.SessionCompletedEvent{
		SessionID:    session.ID,
		AssignmentID: session.AssignmentID,
		UserID:       session.UserID,
		FinalScore:   *session.FinalScore,
		MaxScore:     session.MaxScore,
		Reason:       string(reason),
		Flagged:      session.IntegrityFlagged,
		CompletedAt:  *session.CompletedAt,
	}))

	if session.IntegrityFlagged {
		s.publish(ctx, events.NewSessionFlaggedEvent(events.SessionFlaggedEvent{
			SessionID:       session.ID,
			AssignmentID:    session.AssignmentID,
			UserID:          session.UserID,
			WindowBlurCount: session.WindowBlurCount,
			ViolationCount:  len(session.IntegrityViolations),
		}))
	}
}

func (s *sessionService) publish(ctx context.Context, event *events.QuizEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func requireInProgress(session *models.QuizSession) error {
	if session.AttemptCompleted {
		return ErrSessionCompleted
	}
	if !session.AttemptStarted {
		return ErrSessionNotStarted
	}
	return nil
}

// mergeAnswers writes answers over the stored ones. Keys are question indexes.
func mergeAnswers(session *models.QuizSession, answers map[string]interface{}) error {
	if len(answers) == 0 {
		return nil
	}
	if session.Answers == nil {
		session.Answers = datatypes.JSONMap{}
	}
	for key, value := range answers {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(session.Questions) {
			return NewValidationError("answers", "must be keyed by a question index of this session", key)
		}
		session.Answers[strconv.Itoa(idx)] = value
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
