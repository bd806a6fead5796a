package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/quiz-service/internal/middleware"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

type CreateSessionRequest struct {
	AssignmentID uint `json:"assignment_id" validate:"required"`
	SubmissionID uint `json:"submission_id" validate:"required"`
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger, validator),
		sessionService: sessionService,
	}
}

// present hides the answer key from students until their attempt is over
func present(c *gin.Context, session *models.QuizSession) *models.QuizSession {
	if session == nil || session.AttemptCompleted || middleware.GetRole(c).CanGrade() {
		return session
	}
	return session.WithoutAnswerKey()
}

// CreateSession opens the quiz for the caller's submission
// @Summary Create quiz session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body CreateSessionRequest true "Submission reference"
// @Success 201 {object} models.QuizSession
// @Success 200 {object} map[string]interface{} "no quiz required"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz session", "assignment_id", req.AssignmentID, "submission_id", req.SubmissionID)

	session, err := h.sessionService.Create(c.Request.Context(), req.AssignmentID, req.SubmissionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"quiz_required": false})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"quiz_required": true, "session": present(c, session)})
}

// GetSession returns a session to its owner or to graders
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID, userID, middleware.GetRole(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, present(c, session))
}

// StartSession begins the attempt; repeating it is harmless
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz session", "session_id", sessionID)

	session, err := h.sessionService.Start(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, present(c, session))
}

// UpdateSession saves progress of an attempt in flight
// @Router /sessions/{id} [patch]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.SessionUpdate
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.sessionService.Update(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, present(c, session))
}

// LogViolation records an integrity event reported by the browser
// @Router /sessions/{id}/violations [post]
func (h *SessionHandler) LogViolation(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.ViolationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.sessionService.LogViolation(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if result.Flagged {
		h.LogWarn(c, "Quiz session flagged", "session_id", sessionID, "violation_type", req.Type)
	}
	result.Session = present(c, result.Session)
	c.JSON(http.StatusOK, result)
}

// CompleteSession finishes the attempt and scores it
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.CompleteRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Completing quiz session", "session_id", sessionID)

	session, err := h.sessionService.Complete(c.Request.Context(), sessionID, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists the sessions of an assignment with aggregate stats
// @Router /assignments/{assignment_id}/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	filters, err := parseSessionFilters(c)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_QUERY", "Invalid query parameters", err, err.Error())
		return
	}

	result, err := h.sessionService.ListByAssignment(c.Request.Context(), assignmentID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseSessionFilters(c *gin.Context) (repositories.SessionFilters, error) {
	filters := repositories.SessionFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if v := c.Query("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filters, err
		}
		filters.Completed = &b
	}
	if v := c.Query("flagged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filters, err
		}
		filters.Flagged = &b
	}
	if v := c.Query("user_id"); v != "" {
		filters.UserID = &v
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, err
		}
		filters.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, err
		}
		filters.Offset = n
	}
	return filters, nil
}
