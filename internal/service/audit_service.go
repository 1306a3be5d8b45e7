package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type auditLogRepository interface {
	Insert(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// auditRecorder is the write side of the audit trail. Services hold it as
// an interface so tests can capture entries; a nil recorder disables
// auditing entirely.
type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditService maintains the admin activity trail. Recording never fails
// the calling operation: a lost audit entry is logged, not surfaced.
type AuditService struct {
	repo   auditLogRepository
	logger *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditLogRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one entry to the audit trail.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if err := s.repo.Insert(ctx, &entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err))
	}
}

// List returns audit entries with pagination metadata.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
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
