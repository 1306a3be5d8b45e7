package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clover-lab/clover-api/internal/service"
	"github.com/clover-lab/clover-api/pkg/config"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
	"github.com/clover-lab/clover-api/pkg/response"
	"github.com/clover-lab/clover-api/pkg/storage"
)

// UploadHandler accepts avatar image uploads.
type UploadHandler struct {
	users *service.UserService
	store *storage.LocalStorage
	cfg   config.UploadsConfig
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(users *service.UserService, store *storage.LocalStorage, cfg config.UploadsConfig) *UploadHandler {
	return &UploadHandler{users: users, store: store, cfg: cfg}
}

// Avatar stores an uploaded image and records its path on the caller's profile.
func (h *UploadHandler) Avatar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file field"))
		return
	}
	if header.Size > h.cfg.MaxFileSizeBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", h.cfg.MaxFileSizeBytes)))
		return
	}
	if !h.allowedMIME(header.Header.Get("Content-Type")) {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedMedia, "unsupported image type"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("avatar-%s-%s%s", claims.UserID, uuid.NewString(), filepath.Ext(header.Filename))
	relPath, err := h.store.SaveStream(filename, file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	if err := h.users.SetAvatar(c.Request.Context(), claims.UserID, relPath); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"avatar_path": relPath}, nil)
}

func (h *UploadHandler) allowedMIME(contentType string) bool {
	if len(h.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedMIMEs {
		if contentType == allowed {
			return true
		}
	}
	return false
}
