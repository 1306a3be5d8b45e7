package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints. All mutations go through
// the action dispatcher so the backend stays the single source of truth for
// what each action means.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List returns enrollments filtered by user, class, and status.
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		UserID:    c.Query("user_id"),
		ClassID:   c.Query("class_id"),
		Status:    models.EnrollmentStatus(c.Query("status")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	// students only ever see their own enrollments
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}

	enrollments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Dispatch executes one enrollment action.
func (h *EnrollmentHandler) Dispatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var action models.EnrollmentAction
	if err := c.ShouldBindJSON(&action); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment action"))
		return
	}

	action.ActorID = claims.UserID

	switch action.Kind {
	case models.ActionJoin, models.ActionLeave, models.ActionCancel:
		// self-service actions always target the caller
		action.UserID = claims.UserID
	case models.ActionAccept, models.ActionReject, models.ActionComplete, models.ActionRemove:
		if claims.Role != models.RoleAdmin && claims.Role != models.RoleInstructor {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "instructor role required"))
			return
		}
	}

	result, err := h.service.Dispatch(c.Request.Context(), action)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
