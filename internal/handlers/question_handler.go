package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

// ReplaceQuestionsRequest carries the whole instructor bank of an assignment
type ReplaceQuestionsRequest struct {
	Questions []models.Question `json:"questions"`
}

func NewQuestionHandler(
	questionService services.QuestionService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger, validator),
		questionService: questionService,
	}
}

// CheckInstructions asks the gateway whether the instructions are clear enough to quiz on
// @Summary Check assignment instructions
// @Tags questions
// @Produce json
// @Param assignment_id path uint true "Assignment ID"
// @Success 200 {object} gateway.InstructionCheck
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /assignments/{assignment_id}/instructions/check [post]
func (h *QuestionHandler) CheckInstructions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	h.LogRequest(c, "Checking instructions", "assignment_id", assignmentID)

	check, err := h.questionService.CheckInstructions(c.Request.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// ListQuestions returns the instructor bank in position order
// @Router /assignments/{assignment_id}/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	questions, err := h.questionService.ListInstructorQuestions(c.Request.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "total": len(questions)})
}

// ReplaceQuestions swaps the instructor bank for the posted list
// @Summary Replace instructor questions
// @Tags questions
// @Accept json
// @Produce json
// @Param assignment_id path uint true "Assignment ID"
// @Param questions body ReplaceQuestionsRequest true "Questions"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /assignments/{assignment_id}/questions [put]
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req ReplaceQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Replacing instructor questions", "assignment_id", assignmentID, "count", len(req.Questions))

	questions, err := h.questionService.ReplaceInstructorQuestions(c.Request.Context(), assignmentID, req.Questions, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "total": len(questions)})
}

// GenerateQuestions appends gateway-generated questions to the bank
// @Router /assignments/{assignment_id}/questions/generate [post]
func (h *QuestionHandler) GenerateQuestions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req services.GenerateQuestionsRequest
	// an empty body means the configured count
	if c.Request.ContentLength != 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	h.LogRequest(c, "Generating questions", "assignment_id", assignmentID, "count", req.Count)

	result, err := h.questionService.GenerateInstructorQuestions(c.Request.Context(), assignmentID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// UpdateQuestion edits one bank question in place
// @Router /assignments/{assignment_id}/questions/{question_id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	var req models.Question
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return
	}

	question, err := h.questionService.UpdateInstructorQuestion(c.Request.Context(), assignmentID, questionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes one bank question
// @Router /assignments/{assignment_id}/questions/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "assignment_id", assignmentID, "question_id", questionID)

	if err := h.questionService.DeleteInstructorQuestion(c.Request.Context(), assignmentID, questionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
