package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/SAP-F-2025/quiz-service/internal/errors"
	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/middleware"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationErrorResponse represents validation error details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and response helpers for all handlers
type BaseHandler struct {
	logger    utils.Logger
	validator *validator.Validator
}

func NewBaseHandler(logger utils.Logger, validator *validator.Validator) BaseHandler {
	return BaseHandler{
		logger:    logger,
		validator: validator,
	}
}

// requestLogger prefers the per-request logger, which already carries request_id, method and path
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.LoggerFromContext(c, h.logger).With("user_id", middleware.GetUserID(c))
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"remote_addr", c.ClientIP()}, additionalFields...)
	h.requestLogger(c).Info(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.requestLogger(c).LogError(err, message, additionalFields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Warn(message, additionalFields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
		Code:    code,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.JSON(statusCode, errorResp)
}

// bindJSON decodes the body and runs struct validation, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err, validationDetails(err))
		return false
	}
	return true
}

// parseIDParam reads a positive numeric path parameter, answering 400 when it is not one
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(param)), 10, 32)
	if err != nil || id == 0 {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param, err, "ID must be a positive integer")
		return 0
	}
	return uint(id)
}

// handleServiceError translates service and gateway errors into HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var gwErr *gateway.Error
	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err, validationDetails(err))
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), err)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "CONFLICT", err.Error(), err)
	case errors.Is(err, services.ErrQuizDisabled),
		errors.Is(err, services.ErrInstructionsMissing),
		errors.Is(err, services.ErrSessionNotStarted):
		h.RespondWithError(c, http.StatusBadRequest, "PRECONDITION_FAILED", err.Error(), err)
	case services.IsUnprocessable(err):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "UNPROCESSABLE", err.Error(), err)
	case errors.As(err, &gwErr):
		h.respondGatewayError(c, gwErr)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

func (h *BaseHandler) respondGatewayError(c *gin.Context, gwErr *gateway.Error) {
	switch gwErr.Kind {
	case gateway.ErrKindConfig:
		h.RespondWithError(c, http.StatusServiceUnavailable, "GATEWAY_NOT_CONFIGURED", gwErr.Error(), gwErr)
	case gateway.ErrKindConnection:
		h.RespondWithError(c, http.StatusGatewayTimeout, "GATEWAY_UNREACHABLE", gwErr.Error(), gwErr)
	default:
		h.RespondWithError(c, http.StatusBadGateway, "GATEWAY_"+strings.ToUpper(string(gwErr.Kind)), gwErr.Error(), gwErr)
	}
}

func validationDetails(err error) []ValidationErrorResponse {
	var details []ValidationErrorResponse
	var many apperrors.ValidationErrors
	var one *apperrors.ValidationError
	switch {
	case errors.As(err, &many):
		for _, e := range many {
			details = append(details, ValidationErrorResponse{Field: e.Field, Message: e.Message})
		}
	case errors.As(err, &one):
		details = append(details, ValidationErrorResponse{Field: one.Field, Message: one.Message})
	}
	return details
}
