package handlers

import (
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-service/internal/middleware"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	questionHandler   *QuestionHandler
	sessionHandler    *SessionHandler
	submissionHandler *SubmissionHandler
	gradingHandler    *GradingHandler
	adminHandler      *AdminHandler
	auth              *middleware.Authenticator
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	auth *middleware.Authenticator,
	taskStaleAfter time.Duration,
) *HandlerManager {
	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), serviceManager.Settings(), validator, logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), validator, logger),
		sessionHandler:    NewSessionHandler(serviceManager.Session(), validator, logger),
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), serviceManager.Task(), validator, logger),
		gradingHandler:    NewGradingHandler(serviceManager.Grading(), validator, logger),
		adminHandler:      NewAdminHandler(serviceManager.Gateway(), serviceManager.Task(), taskStaleAfter, validator, logger),
		auth:              auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	router.GET("/metrics", metrics.PrometheusHandler())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(hm.auth))

	teacher := middleware.RequireRole(models.RoleTeacher)
	admin := middleware.RequireRole(models.RoleAdmin)

	// Assignment routes
	assignments := v1.Group("/assignments/:assignment_id", teacher)
	{
		assignments.PUT("", hm.assignmentHandler.UpsertAssignment)
		assignments.GET("/settings", hm.assignmentHandler.GetSettings)
		assignments.PUT("/settings", hm.assignmentHandler.SaveSettings)

		// Instructor question bank
		assignments.POST("/instructions/check", hm.questionHandler.CheckInstructions)
		assignments.GET("/questions", hm.questionHandler.ListQuestions)
		assignments.PUT("/questions", hm.questionHandler.ReplaceQuestions)
		assignments.POST("/questions/generate", hm.questionHandler.GenerateQuestions)
		assignments.PUT("/questions/:question_id", hm.questionHandler.UpdateQuestion)
		assignments.DELETE("/questions/:question_id", hm.questionHandler.DeleteQuestion)

		assignments.GET("/sessions", hm.sessionHandler.ListSessions)

		// Grading
		assignments.GET("/grades", hm.gradingHandler.ListGrades)
		assignments.PUT("/grades/:user_id", hm.gradingHandler.SaveGrade)
		assignments.POST("/grades/bulk", hm.gradingHandler.BulkSaveGrades)
		assignments.POST("/grades/auto", hm.gradingHandler.AutoGrade)
		assignments.GET("/grades/export", hm.gradingHandler.ExportGrades)
	}

	// Host webhooks
	v1.POST("/events/submissions", teacher, hm.submissionHandler.SubmissionEvent)
	v1.GET("/submissions/:submission_id/task", hm.submissionHandler.GetTaskStatus)

	// Quiz sessions; ownership is checked by the service
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", hm.sessionHandler.CreateSession)
		sessions.GET("/:id", hm.sessionHandler.GetSession)
		sessions.PATCH("/:id", hm.sessionHandler.UpdateSession)
		sessions.POST("/:id/start", hm.sessionHandler.StartSession)
		sessions.POST("/:id/violations", hm.sessionHandler.LogViolation)
		sessions.POST("/:id/complete", hm.sessionHandler.CompleteSession)
	}

	adminGroup := v1.Group("/admin", admin)
	{
		adminGroup.GET("/gateway-cache", hm.adminHandler.GetCacheSettings)
		adminGroup.PUT("/gateway-cache", hm.adminHandler.UpdateCacheSettings)
		adminGroup.DELETE("/gateway-cache", hm.adminHandler.ClearCache)
		adminGroup.GET("/tasks", hm.adminHandler.ListTasks)
		adminGroup.POST("/tasks/reap", hm.adminHandler.ReapTasks)
	}
}
