package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
)

// ErrorLogHandler exposes error reporting endpoints.
type ErrorLogHandler struct {
	service *service.ErrorLogService
}

// NewErrorLogHandler creates a new handler.
func NewErrorLogHandler(svc *service.ErrorLogService) *ErrorLogHandler {
	return &ErrorLogHandler{service: svc}
}

// Report stores one error report from a client.
func (h *ErrorLogHandler) Report(c *gin.Context) {
	var req service.ReportErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid error report"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.UserID = &claims.UserID
	}

	log, err := h.service.Report(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, log)
}

// Get returns one error report.
func (h *ErrorLogHandler) Get(c *gin.Context) {
	log, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// List returns error logs for administrators.
func (h *ErrorLogHandler) List(c *gin.Context) {
	filter := models.ErrorLogFilter{
		UserID:    c.Query("user_id"),
		Source:    c.Query("source"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("resolved"); raw != "" {
		resolved := raw == "true"
		filter.Resolved = &resolved
	}

	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, pagination)
}

// Resolve marks an error report as handled by the caller.
func (h *ErrorLogHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Resolve(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
