package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
	"github.com/clover-lab/clover-api/pkg/response"
)

// AuditLogHandler exposes the admin activity trail.
type AuditLogHandler struct {
	service *service.AuditService
}

// NewAuditLogHandler creates a new handler.
func NewAuditLogHandler(svc *service.AuditService) *AuditLogHandler {
	return &AuditLogHandler{service: svc}
}

// List returns audit trail entries, newest first.
func (h *AuditLogHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		ActorID:  c.Query("actor_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, pagination)
}
