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

// ReportHandler manages report job creation and downloads.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

type createReportRequest struct {
	Type    models.ReportType   `json:"type" binding:"required"`
	Format  models.ReportFormat `json:"format" binding:"required"`
	UserID  *string             `json:"user_id"`
	ClassID *string             `json:"class_id"`
	From    *string             `json:"from"`
	To      *string             `json:"to"`
}

// Create queues a new report generation job.
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload createReportRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report request"))
		return
	}

	req := service.ReportRequest{
		Type:    payload.Type,
		Format:  payload.Format,
		UserID:  payload.UserID,
		ClassID: payload.ClassID,
	}
	if payload.From != nil {
		from, err := time.Parse(time.RFC3339, *payload.From)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be ISO-8601"))
			return
		}
		req.From = &from
	}
	if payload.To != nil {
		to, err := time.Parse(time.RFC3339, *payload.To)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be ISO-8601"))
			return
		}
		req.To = &to
	}

	job, err := h.service.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status returns metadata for one report job.
func (h *ReportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// List returns recent report jobs created by the caller.
func (h *ReportHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	jobsList, err := h.service.ListJobs(c.Request.Context(), claims.UserID, queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, jobsList, nil)
}

// Download streams a finished export. Access is granted by the signed
// token alone so links can be opened outside an authenticated session.
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
