package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// AdminHandler controls the gateway response cache and the submission task queue
type AdminHandler struct {
	BaseHandler
	gateway     services.GatewayAdmin
	taskService services.TaskService
	staleAfter  time.Duration
}

type CacheSettingsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func NewAdminHandler(gateway services.GatewayAdmin, taskService services.TaskService, staleAfter time.Duration, validator *validator.Validator, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger, validator),
		gateway:     gateway,
		taskService: taskService,
		staleAfter:  staleAfter,
	}
}

func (h *AdminHandler) available(c *gin.Context) bool {
	if h.gateway == nil {
		h.RespondWithError(c, http.StatusServiceUnavailable, "GATEWAY_NOT_CONFIGURED",
			"Gateway is not configured", errors.New("no gateway client"))
		return false
	}
	return true
}

// ClearCache purges every stored gateway response, or only expired ones with ?expired=true
// @Param expired query bool false "Only drop entries past the cache TTL"
// @Router /admin/gateway-cache [delete]
func (h *AdminHandler) ClearCache(c *gin.Context) {
	if !h.available(c) {
		return
	}

	purge := h.gateway.ClearCache
	if c.Query("expired") == "true" {
		purge = h.gateway.PurgeExpired
	}
	removed, err := purge(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Gateway cache cleared", "removed", removed, "expired_only", c.Query("expired") == "true")
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GetCacheSettings reports whether gateway responses are cached
// @Router /admin/gateway-cache [get]
func (h *AdminHandler) GetCacheSettings(c *gin.Context) {
	if !h.available(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": h.gateway.CacheEnabled()})
}

// UpdateCacheSettings turns the gateway response cache on or off until restart
// @Router /admin/gateway-cache [put]
func (h *AdminHandler) UpdateCacheSettings(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var req CacheSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.gateway.SetCacheEnabled(*req.Enabled)
	h.LogRequest(c, "Gateway cache toggled", "enabled", *req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": h.gateway.CacheEnabled()})
}

// ListTasks lists submission tasks, optionally filtered by status
// @Param status query string false "queued, running, completed or failed; repeatable"
// @Param limit query int false "At most 500"
// @Router /admin/tasks [get]
func (h *AdminHandler) ListTasks(c *gin.Context) {
	var filters repositories.TaskFilters
	for _, status := range c.QueryArray("status") {
		switch s := models.TaskStatus(status); s {
		case models.TaskQueued, models.TaskRunning, models.TaskCompleted, models.TaskFailed:
			filters.Statuses = append(filters.Statuses, s)
		default:
			h.RespondWithError(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid status", nil, status)
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.RespondWithError(c, http.StatusBadRequest, "INVALID_LIMIT", "Invalid limit", err)
			return
		}
		filters.Limit = limit
	}

	tasks, err := h.taskService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// ReapTasks requeues or fails tasks stuck in queued or running
// @Param stale_after query string false "Go duration, defaults to the configured threshold"
// @Router /admin/tasks/reap [post]
func (h *AdminHandler) ReapTasks(c *gin.Context) {
	staleAfter := h.staleAfter
	if v := c.Query("stale_after"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			h.RespondWithError(c, http.StatusBadRequest, "INVALID_DURATION", "Invalid stale_after", err)
			return
		}
		staleAfter = d
	}

	result, err := h.taskService.ReapStale(c.Request.Context(), staleAfter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Stale tasks reaped", "requeued", result.Requeued, "failed", result.Failed)
	c.JSON(http.StatusOK, result)
}
