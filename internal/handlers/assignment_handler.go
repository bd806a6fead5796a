package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// AssignmentHandler serves the host mirror of assignments and their quiz settings
type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	settingsService   services.SettingsService
}

func NewAssignmentHandler(
	assignmentService services.AssignmentService,
	settingsService services.SettingsService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger, validator),
		assignmentService: assignmentService,
		settingsService:   settingsService,
	}
}

// UpsertAssignment mirrors a host assignment
// @Router /assignments/{assignment_id} [put]
func (h *AssignmentHandler) UpsertAssignment(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	var req models.Assignment
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return
	}
	req.ID = assignmentID

	h.LogRequest(c, "Mirroring assignment", "assignment_id", assignmentID)

	assignment, err := h.assignmentService.Upsert(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// GetSettings returns the quiz settings, defaults included when none were saved
// @Router /assignments/{assignment_id}/settings [get]
func (h *AssignmentHandler) GetSettings(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	settings, err := h.settingsService.Get(c.Request.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// SaveSettings replaces the quiz settings of an assignment
// @Router /assignments/{assignment_id}/settings [put]
func (h *AssignmentHandler) SaveSettings(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	// unspecified fields keep their defaults
	req := models.DefaultQuizSettings(assignmentID)
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return
	}
	req.AssignmentID = assignmentID

	h.LogRequest(c, "Saving quiz settings", "assignment_id", assignmentID, "enabled", req.Enabled)

	settings, err := h.settingsService.Save(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
