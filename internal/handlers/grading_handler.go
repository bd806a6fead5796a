package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

// SaveGradeRequest sets or clears (null) one user's grade
type SaveGradeRequest struct {
	Grade *float64 `json:"grade"`
}

// BulkGradeRequest maps user ids to grades; null clears a grade
type BulkGradeRequest struct {
	Grades map[string]*float64 `json:"grades" validate:"required,min=1"`
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger, validator),
		gradingService: gradingService,
	}
}

// ListGrades returns every grade row of an assignment
// @Router /assignments/{assignment_id}/grades [get]
func (h *GradingHandler) ListGrades(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	grades, err := h.gradingService.List(c.Request.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grades": grades, "total": len(grades)})
}

// SaveGrade grades one user directly
// @Summary Save grade
// @Tags grading
// @Accept json
// @Produce json
// @Param assignment_id path uint true "Assignment ID"
// @Param user_id path string true "User ID"
// @Param grade body SaveGradeRequest true "Grade"
// @Success 200 {object} models.GradeRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{assignment_id}/grades/{user_id} [put]
func (h *GradingHandler) SaveGrade(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	userID := ParseStringIDParam(c, "user_id")
	if userID == "" {
		return
	}
	graderID, ok := requireUser(c)
	if !ok {
		return
	}

	var req SaveGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Saving grade", "assignment_id", assignmentID, "student_id", userID)

	record, err := h.gradingService.Save(c.Request.Context(), assignmentID, userID, req.Grade, graderID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// BulkSaveGrades grades many users; individual failures are reported, not fatal
// @Router /assignments/{assignment_id}/grades/bulk [post]
func (h *GradingHandler) BulkSaveGrades(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	graderID, ok := requireUser(c)
	if !ok {
		return
	}

	var req BulkGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Saving grades in bulk", "assignment_id", assignmentID, "count", len(req.Grades))

	result, err := h.gradingService.BulkSave(c.Request.Context(), assignmentID, req.Grades, graderID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AutoGrade converts completed quiz scores into assignment grades
// @Router /assignments/{assignment_id}/grades/auto [post]
func (h *GradingHandler) AutoGrade(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}
	graderID, ok := requireUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Auto-grading from quiz scores", "assignment_id", assignmentID)

	result, err := h.gradingService.AutoGradeFromQuiz(c.Request.Context(), assignmentID, graderID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportGrades downloads the grade sheet as a workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /assignments/{assignment_id}/grades/export [get]
func (h *GradingHandler) ExportGrades(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "assignment_id")
	if assignmentID == 0 {
		return
	}

	data, err := h.gradingService.ExportGrades(c.Request.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="grades-%d.xlsx"`, assignmentID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
