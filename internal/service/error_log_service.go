package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type errorLogRepository interface {
	Insert(ctx context.Context, log *models.ErrorLog) error
	FindByID(ctx context.Context, id string) (*models.ErrorLog, error)
	List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, int, error)
	MarkResolved(ctx context.Context, id, resolvedBy string) error
}

// ReportErrorRequest is a client-side or backend error report.
type ReportErrorRequest struct {
	UserID  *string `json:"user_id,omitempty"`
	Message string  `json:"message" validate:"required"`
	Stack   string  `json:"stack"`
	Source  string  `json:"source" validate:"required"`
}

// ErrorLogService tracks reported application errors.
type ErrorLogService struct {
	repo      errorLogRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewErrorLogService constructs ErrorLogService. A nil audit recorder
// disables the activity trail.
func NewErrorLogService(repo errorLogRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ErrorLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Report stores one error report.
func (s *ErrorLogService) Report(ctx context.Context, req ReportErrorRequest) (*models.ErrorLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid error report")
	}

	log := &models.ErrorLog{
		UserID:  req.UserID,
		Message: req.Message,
		Stack:   req.Stack,
		Source:  req.Source,
	}
	if err := s.repo.Insert(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store error log")
	}
	return log, nil
}

// Get returns one error log entry.
func (s *ErrorLogService) Get(ctx context.Context, id string) (*models.ErrorLog, error) {
	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "error log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load error log")
	}
	return log, nil
}

// List returns error logs with pagination metadata.
func (s *ErrorLogService) List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list error logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return logs, pagination, nil
}

// Resolve marks an error report as handled.
func (s *ErrorLogService) Resolve(ctx context.Context, id, resolvedBy string) error {
	if err := s.repo.MarkResolved(ctx, id, resolvedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "error log not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve error log")
	}

	if s.audit != nil {
		actorID := resolvedBy
		logID := id
		s.audit.Record(ctx, models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionErrorResolve,
			Resource:   "error_log",
			ResourceID: &logID,
		})
	}

	return nil
}
