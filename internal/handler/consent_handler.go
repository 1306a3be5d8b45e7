package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/service"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
)

// ConsentHandler serves the research consent form.
type ConsentHandler struct {
	service *service.ConsentService
}

// NewConsentHandler creates a new handler.
func NewConsentHandler(svc *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{service: svc}
}

// Latest returns the current consent form version.
func (h *ConsentHandler) Latest(c *gin.Context) {
	form, err := h.service.Latest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form, nil)
}

// Update publishes a new consent form version.
func (h *ConsentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid consent payload"))
		return
	}

	form, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, form, nil)
}

// History returns past consent form versions, newest first.
func (h *ConsentHandler) History(c *gin.Context) {
	forms, err := h.service.History(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, forms, nil)
}
