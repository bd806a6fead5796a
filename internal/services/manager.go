package services

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/gradebook"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/storage"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// GatewayAdmin exposes the response cache controls of the gateway client
type GatewayAdmin interface {
	ClearCache(ctx context.Context) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
	CacheEnabled() bool
	SetCacheEnabled(enabled bool)
}

type ServiceManager interface {
	Assignment() AssignmentService
	Settings() SettingsService
	Question() QuestionService
	Session() SessionService
	Submission() SubmissionProcessor
	Task() TaskService
	Grading() GradingService
	Gateway() GatewayAdmin
}

// Dependencies wires the infrastructure the services run on.
// Store, Mirror and Rand are optional.
type Dependencies struct {
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Gateway   QuestionGateway
	Admin     GatewayAdmin
	Store     storage.BlobStore
	Mirror    gradebook.Mirror
	Publisher events.EventPublisher
	Queue     JobQueue
	Rand      *rand.Rand
}

type serviceManager struct {
	assignment AssignmentService
	settings   SettingsService
	question   QuestionService
	session    SessionService
	submission SubmissionProcessor
	task       TaskService
	grading    GradingService
	admin      GatewayAdmin
}

func NewServiceManager(deps Dependencies) ServiceManager {
	settings := NewSettingsService(deps.Repo, deps.Logger, deps.Validator)
	sessions := NewSessionService(deps.Repo, deps.Logger, deps.Validator, settings, NewQuestionSelector(deps.Rand), deps.Publisher)

	return &serviceManager{
		assignment: NewAssignmentService(deps.Repo, deps.Logger, deps.Validator),
		settings:   settings,
		question:   NewQuestionService(deps.Repo, deps.Logger, deps.Validator, deps.Gateway, deps.Store, settings),
		session:    sessions,
		submission: NewSubmissionProcessor(deps.Repo, deps.Logger, deps.Validator, deps.Gateway, deps.Store, settings, sessions, deps.Queue),
		task:       NewTaskService(deps.Repo, deps.Logger, deps.Queue),
		grading:    NewGradingService(deps.Repo, deps.Logger, deps.Mirror, deps.Publisher),
		admin:      deps.Admin,
	}
}

func (m *serviceManager) Assignment() AssignmentService { return m.assignment }
func (m *serviceManager) Settings() SettingsService { return m.settings }
func (m *serviceManager) Question() QuestionService { return m.question }
func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Submission() SubmissionProcessor { return m.submission }
func (m *serviceManager) Task() TaskService { return m.task }
func (m *serviceManager) Grading() GradingService { return m.grading }
func (m *serviceManager) Gateway() GatewayAdmin { return m.admin }
