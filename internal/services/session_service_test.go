package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAssignmentID uint = 1
	testSubmissionID uint = 10
	testStudent           = "student-1"
)

// newQuizEnv seeds an enabled quiz with four instructor questions worth 40 points
func newQuizEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.seedAssignment(t, testAssignmentID, "Write an essay about rivers.")
	env.seedSubmission(t, testAssignmentID, testSubmissionID, testStudent, "Rivers flow downhill.")
	env.seedSettings(t, testAssignmentID, 4, 0)
	env.seedInstructorQuestions(t, testAssignmentID,
		mcQuestion("q0", 0),
		tfQuestion("q1", true),
		mcQuestion("q2", 1),
		mcQuestion("q3", 2),
	)
	return env
}

// answerFor returns a correct or a wrong answer for question q
func answerFor(q models.Question, correct bool) interface{} {
	idx := q.CorrectOptionIndex()
	switch q.Type {
	case models.TrueFalse:
		value, _ := models.ParseBoolAnswer(q.Options[idx].Text)
		if !correct {
			value = !value
		}
		return strconv.FormatBool(value)
	case models.MultipleChoice:
		if !correct {
			idx = (idx + 1) % len(q.Options)
		}
		return float64(idx)
	}
	if correct {
		return "an answer"
	}
	return ""
}

func createAndStart(t *testing.T, env *testEnv) *models.QuizSession {
	t.Helper()
	ctx := context.Background()
	session, err := env.manager.Session().Create(ctx, testAssignmentID, testSubmissionID, testStudent)
	require.NoError(t, err)
	require.NotNil(t, session)
	session, err = env.manager.Session().Start(ctx, session.ID, testStudent)
	require.NoError(t, err)
	return session
}

func TestSessionCreate_EmptyPoolsMeanNoQuiz(t *testing.T) {
	env := newTestEnv(t)
	env.seedAssignment(t, testAssignmentID, "Instructions")
	env.seedSubmission(t, testAssignmentID, testSubmissionID, testStudent, "text")
	env.seedSettings(t, testAssignmentID, 3, 2)

	session, err := env.manager.Session().Create(context.Background(), testAssignmentID, testSubmissionID, testStudent)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = env.manager.Session().GetBySubmission(context.Background(), testAssignmentID, testSubmissionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, env.publisher.EventsOfType(events.EventSessionCreated))
}

func TestSessionCreate_DisabledQuiz(t *testing.T) {
	env := newQuizEnv(t)
	settings := models.DefaultQuizSettings(testAssignmentID)
	settings.InstructorQuestions = 4
	require.NoError(t, env.repo.Settings().Upsert(context.Background(), nil, settings))

	_, err := env.manager.Session().Create(context.Background(), testAssignmentID, testSubmissionID, testStudent)
	assert.ErrorIs(t, err, ErrQuizDisabled)
}

func TestSessionCreate_RejectsOtherUsersSubmission(t *testing.T) {
	env := newQuizEnv(t)

	_, err := env.manager.Session().Create(context.Background(), testAssignmentID, testSubmissionID, "student-2")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSessionCreate_IdempotentAndFrozen(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()
	svc := env.manager.Session()

	first, err := svc.Create(ctx, testAssignmentID, testSubmissionID, testStudent)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Len(t, first.Questions, 4)
	assert.Equal(t, 40, first.MaxScore)
	assert.Equal(t, models.SessionCreated, first.State())

	second, err := svc.Create(ctx, testAssignmentID, testSubmissionID, testStudent)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Questions, second.Questions)

	// changing the bank afterwards does not touch the frozen set
	_, err = env.manager.Question().ReplaceInstructorQuestions(ctx, testAssignmentID, []models.Question{mcQuestion("new", 0)}, "teacher-1")
	require.NoError(t, err)

	started, err := svc.Start(ctx, first.ID, testStudent)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, started.State())
	assert.Equal(t, first.Questions, started.Questions)
	assert.Equal(t, models.DefaultTimePerQuestion, started.TimeRemaining)

	again, err := svc.Start(ctx, first.ID, testStudent)
	require.NoError(t, err)
	assert.Equal(t, started.StartedAt.Unix(), again.StartedAt.Unix())
	assert.Equal(t, first.Questions, again.Questions)

	assert.Len(t, env.publisher.EventsOfType(events.EventSessionCreated), 1)
}

func TestSessionUpdate(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()
	svc := env.manager.Session()

	created, err := svc.Create(ctx, testAssignmentID, testSubmissionID, testStudent)
	require.NoError(t, err)

	two := 2
	_, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{CurrentQuestion: &two})
	assert.ErrorIs(t, err, ErrSessionNotStarted)

	_, err = svc.Start(ctx, created.ID, testStudent)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, testStudent, &SessionUpdate{
		CurrentQuestion: &two,
		Answers:         map[string]interface{}{"0": float64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentQuestion)
	assert.Equal(t, float64(1), updated.Answers["0"])

	one := 1
	_, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{CurrentQuestion: &one})
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	four := 4
	_, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{CurrentQuestion: &four})
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	tooMuch, negative := 999, -5
	updated, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{TimeRemaining: &tooMuch})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTimePerQuestion, updated.TimeRemaining)

	updated, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{TimeRemaining: &negative})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.TimeRemaining)

	_, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{Answers: map[string]interface{}{"9": "x"}})
	assert.True(t, IsValidation(err))

	_, err = svc.Update(ctx, created.ID, "student-2", &SessionUpdate{TimeRemaining: &tooMuch})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := env.repo.Session().GetByID(ctx, nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentQuestion)
	assert.Greater(t, stored.Version, created.Version)

	t.Run("blur count reaching the threshold completes flagged", func(t *testing.T) {
		below := models.DefaultMaxWindowBlurs - 1
		updated, err := svc.Update(ctx, created.ID, testStudent, &SessionUpdate{WindowBlurCount: &below})
		require.NoError(t, err)
		assert.False(t, updated.AttemptCompleted)

		// a lower count from a stale client is ignored
		zero := 0
		updated, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{WindowBlurCount: &zero})
		require.NoError(t, err)
		assert.Equal(t, below, updated.WindowBlurCount)

		limit := models.DefaultMaxWindowBlurs
		updated, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{WindowBlurCount: &limit})
		require.NoError(t, err)
		assert.True(t, updated.AttemptCompleted)
		assert.True(t, updated.IntegrityFlagged)
		require.NotNil(t, updated.CompletionReason)
		assert.Equal(t, models.CompletionIntegrityViolation, *updated.CompletionReason)

		stored, err := env.repo.Session().GetByID(ctx, nil, created.ID)
		require.NoError(t, err)
		assert.True(t, stored.AttemptCompleted)
		assert.True(t, stored.IntegrityFlagged)
		assert.NotNil(t, stored.FinalScore)

		_, err = svc.Update(ctx, created.ID, testStudent, &SessionUpdate{CurrentQuestion: &two})
		assert.ErrorIs(t, err, ErrSessionCompleted)
	})
}

func TestSessionLogViolation_ThresholdCompletesFlagged(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()
	svc := env.manager.Session()
	session := createAndStart(t, env)

	// one correct answer before the student starts switching windows
	_, err := svc.Update(ctx, session.ID, testStudent, &SessionUpdate{
		Answers: map[string]interface{}{"0": answerFor(session.Questions[0].Question, true)},
	})
	require.NoError(t, err)

	blur := &ViolationRequest{Type: models.ViolationWindowBlur, Data: map[string]any{"duration_ms": 1200}}

	for i := 1; i <= 2; i++ {
		result, err := svc.LogViolation(ctx, session.ID, testStudent, blur)
		require.NoError(t, err)
		assert.False(t, result.Flagged)
		assert.Equal(t, i, result.Session.WindowBlurCount)
		assert.False(t, result.Session.AttemptCompleted)
	}

	result, err := svc.LogViolation(ctx, session.ID, testStudent, &ViolationRequest{Type: models.ViolationTabSwitch})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Session.WindowBlurCount)

	result, err = svc.LogViolation(ctx, session.ID, testStudent, blur)
	require.NoError(t, err)
	assert.True(t, result.Flagged)
	assert.True(t, result.Session.AttemptCompleted)
	assert.True(t, result.Session.IntegrityFlagged)
	require.NotNil(t, result.Session.CompletionReason)
	assert.Equal(t, models.CompletionIntegrityViolation, *result.Session.CompletionReason)
	require.NotNil(t, result.Session.FinalScore)
	assert.Equal(t, 10.0, *result.Session.FinalScore)
	assert.Len(t, result.Session.IntegrityViolations, 4)

	assert.Len(t, env.publisher.EventsOfType(events.EventSessionFlagged), 1)
	assert.Len(t, env.publisher.EventsOfType(events.EventSessionCompleted), 1)

	// further violations are accepted and ignored
	result, err = svc.LogViolation(ctx, session.ID, testStudent, blur)
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, 3, result.Session.WindowBlurCount)
}

func TestSessionLogViolation_RejectsUnknownType(t *testing.T) {
	env := newQuizEnv(t)
	session := createAndStart(t, env)

	_, err := env.manager.Session().LogViolation(context.Background(), session.ID, testStudent, &ViolationRequest{Type: "screenshot"})
	assert.True(t, IsValidation(err))
}

func TestSessionComplete_ScoresServerSide(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()
	svc := env.manager.Session()
	session := createAndStart(t, env)

	answers := map[string]interface{}{}
	for i, sq := range session.Questions {
		answers[strconv.Itoa(i)] = answerFor(sq.Question, i != 3)
	}
	clientScore := 40.0

	completed, err := svc.Complete(ctx, session.ID, testStudent, &CompleteRequest{FinalAnswers: answers, FinalScore: &clientScore})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, completed.State())
	require.NotNil(t, completed.FinalScore)
	assert.Equal(t, 30.0, *completed.FinalScore)
	require.NotNil(t, completed.ClientScore)
	assert.Equal(t, 40.0, *completed.ClientScore)
	assert.Equal(t, 40, completed.MaxScore)
	assert.False(t, completed.IntegrityFlagged)

	_, err = svc.Complete(ctx, session.ID, testStudent, &CompleteRequest{FinalAnswers: answers})
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.True(t, IsConflict(err))

	zero := 0
	_, err = svc.Update(ctx, session.ID, testStudent, &SessionUpdate{TimeRemaining: &zero})
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = svc.Start(ctx, session.ID, testStudent)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	stored, err := svc.GetBySubmission(ctx, testAssignmentID, testSubmissionID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, *stored.FinalScore)
	assert.Equal(t, session.Questions, stored.Questions)

	completedEvents := env.publisher.EventsOfType(events.EventSessionCompleted)
	require.Len(t, completedEvents, 1)
	data, ok := completedEvents[0].Data.(events.SessionCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, string(models.CompletionSubmitted), data.Reason)
}

func TestSessionGet_Permissions(t *testing.T) {
	env := newQuizEnv(t)
	ctx := context.Background()
	session := createAndStart(t, env)
	svc := env.manager.Session()

	_, err := svc.Get(ctx, session.ID, "student-2", models.RoleStudent)
	var permErr *PermissionError
	assert.True(t, errors.As(err, &permErr))

	got, err := svc.Get(ctx, session.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = svc.Get(ctx, 999, testStudent, models.RoleStudent)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	list, err := svc.ListByAssignment(ctx, testAssignmentID, repositories.SessionFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(1), list.Stats.InProgress)
}
