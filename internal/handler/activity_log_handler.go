package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
)

// ActivityLogHandler exposes suggestion interaction endpoints.
type ActivityLogHandler struct {
	service *service.ActivityLogService
}

// NewActivityLogHandler creates a new handler.
func NewActivityLogHandler(svc *service.ActivityLogService) *ActivityLogHandler {
	return &ActivityLogHandler{service: svc}
}

// Ingest stores one interaction event reported by an editor client.
func (h *ActivityLogHandler) Ingest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.IngestActivityLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity log payload"))
		return
	}
	// events are always recorded against the authenticated user
	req.UserID = claims.UserID

	log, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, log)
}

// List returns activity logs filtered by user, class, mode, and time window.
func (h *ActivityLogHandler) List(c *gin.Context) {
	h.list(c, c.Query("user_id"))
}

// ListForUser returns one user's activity, scoped by the path parameter.
func (h *ActivityLogHandler) ListForUser(c *gin.Context) {
	h.list(c, c.Param("id"))
}

func (h *ActivityLogHandler) list(c *gin.Context, userID string) {
	filter := models.ActivityLogFilter{
		UserID:    userID,
		ClassID:   c.Query("class_id"),
		Mode:      models.SuggestionMode(c.Query("mode")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}

	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be ISO-8601"))
			return
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be ISO-8601"))
			return
		}
		filter.To = &ts
	}

	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, pagination)
}
