package services

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockGateway is a mock implementation of QuestionGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckInstructions(ctx context.Context, instructions string) (*gateway.InstructionCheck, error) {
	args := m.Called(ctx, instructions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InstructionCheck), args.Error(1)
}

func (m *MockGateway) GenerateQuestions(ctx context.Context, instructions string, count int, files []gateway.File) (*gateway.QuestionSet, error) {
	args := m.Called(ctx, instructions, count, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.QuestionSet), args.Error(1)
}

func (m *MockGateway) AnalyzeSubmission(ctx context.Context, submissionText string, count int, files []gateway.File) (*gateway.QuestionSet, error) {
	args := m.Called(ctx, submissionText, count, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.QuestionSet), args.Error(1)
}

// recordingQueue keeps enqueued jobs in memory
type recordingQueue struct {
	mu   sync.Mutex
	jobs []events.SubmissionJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job events.SubmissionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type testEnv struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher
	gateway   *MockGateway
	queue     *recordingQueue
	manager   ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		repo:      postgres.NewRepository(db),
		logger:    log,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(log),
		gateway:   &MockGateway{},
		queue:     &recordingQueue{},
	}
	env.manager = NewServiceManager(Dependencies{
		Repo:      env.repo,
		Logger:    log,
		Validator: env.validator,
		Gateway:   env.gateway,
		Publisher: env.publisher,
		Queue:     env.queue,
		Rand:      rand.New(rand.NewSource(42)),
	})
	return env
}

func (e *testEnv) seedAssignment(t *testing.T, id uint, instructions string) *models.Assignment {
	t.Helper()
	assignment := &models.Assignment{ID: id, Name: "Essay", Instructions: instructions, MaxGrade: 100}
	require.NoError(t, e.repo.Assignment().Upsert(context.Background(), nil, assignment))
	return assignment
}

func (e *testEnv) seedSubmission(t *testing.T, assignmentID, id uint, userID, text string) *models.Submission {
	t.Helper()
	submission := &models.Submission{
		ID:           id,
		AssignmentID: assignmentID,
		UserID:       userID,
		Status:       models.SubmissionSubmitted,
		OnlineText:   text,
	}
	require.NoError(t, e.repo.Submission().Upsert(context.Background(), nil, submission))
	return submission
}

func (e *testEnv) seedSettings(t *testing.T, assignmentID uint, instructor, submission int) *models.QuizSettings {
	t.Helper()
	settings := models.DefaultQuizSettings(assignmentID)
	settings.Enabled = true
	settings.InstructorQuestions = instructor
	settings.SubmissionQuestions = submission
	require.NoError(t, e.repo.Settings().Upsert(context.Background(), nil, settings))
	return settings
}

func (e *testEnv) seedInstructorQuestions(t *testing.T, assignmentID uint, questions ...models.Question) {
	t.Helper()
	rows := make([]*models.InstructorQuestion, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, models.NewInstructorQuestion(assignmentID, i, q, "teacher-1"))
	}
	require.NoError(t, e.repo.Question().CreateInstructorBatch(context.Background(), nil, rows))
}

func mcQuestion(text string, correct int) models.Question {
	options := []models.Option{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}}
	options[correct].IsCorrect = true
	return models.Question{Type: models.MultipleChoice, Text: text, Options: options, Points: 10}
}

func tfQuestion(text string, answer bool) models.Question {
	return models.Question{
		Type: models.TrueFalse,
		Text: text,
		Options: []models.Option{
			{Text: "True", IsCorrect: answer},
			{Text: "False", IsCorrect: !answer},
		},
		Points: 10,
	}
}
