package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// SubmissionHandler receives host submission events and reports background task progress
type SubmissionHandler struct {
	BaseHandler
	processor   services.SubmissionProcessor
	taskService services.TaskService
}

func NewSubmissionHandler(
	processor services.SubmissionProcessor,
	taskService services.TaskService,
	validator *validator.Validator,
	logger utils.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler: NewBaseHandler(logger, validator),
		processor:   processor,
		taskService: taskService,
	}
}

// SubmissionEvent handles the host's submission created/updated webhook
// @Summary Submission event
// @Tags submissions
// @Accept json
// @Produce json
// @Param event body services.SubmissionEventRequest true "Assignment and submission"
// @Success 202 {object} services.SubmissionEventResult
// @Success 200 {object} services.SubmissionEventResult "nothing to process"
// @Failure 400 {object} ErrorResponse
// @Router /events/submissions [post]
func (h *SubmissionHandler) SubmissionEvent(c *gin.Context) {
	var req services.SubmissionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return
	}

	result, err := h.processor.HandleSubmissionEvent(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// GetTaskStatus reports the question generation task of a submission
// @Router /submissions/{submission_id}/task [get]
func (h *SubmissionHandler) GetTaskStatus(c *gin.Context) {
	submissionID := h.parseIDParam(c, "submission_id")
	if submissionID == 0 {
		return
	}

	var assignmentID uint
	if v := c.Query("assignment_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			h.RespondWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid assignment_id", err)
			return
		}
		assignmentID = uint(id)
	}

	status, err := h.taskService.GetStatus(c.Request.Context(), assignmentID, submissionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
