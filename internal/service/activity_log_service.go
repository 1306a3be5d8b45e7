package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type activityLogRepository interface {
	Insert(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error)
}

// IngestActivityLogRequest is one suggestion interaction reported by a client.
// created_at arrives as ISO-8601 text; an absent value defaults to now.
type IngestActivityLogRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	Event      string  `json:"event" validate:"required"`
	HasBug     *bool   `json:"has_bug,omitempty"`
	ClassID    *string `json:"class_id,omitempty"`
	DurationMS int     `json:"duration_ms" validate:"gte=0"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// ActivityLogService ingests and lists suggestion interaction events.
type ActivityLogService struct {
	repo      activityLogRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityLogService constructs ActivityLogService.
func NewActivityLogService(repo activityLogRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ActivityLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Ingest validates and stores one activity log event. The event tag must
// belong to the fixed vocabulary; the suggestion mode is derived from it.
func (s *ActivityLogService) Ingest(ctx context.Context, req IngestActivityLogRequest) (*models.ActivityLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity log payload")
	}

	tag := models.EventTag(req.Event)
	if !tag.IsAccept() && !tag.IsReject() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event tag %q", req.Event))
	}

	createdAt := time.Now().UTC()
	if req.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "created_at must be ISO-8601")
		}
		createdAt = parsed.UTC()
	}

	log := &models.ActivityLog{
		UserID:     req.UserID,
		Event:      tag,
		Mode:       tag.Mode(),
		HasBug:     req.HasBug,
		ClassID:    req.ClassID,
		DurationMS: req.DurationMS,
		CreatedAt:  createdAt,
	}

	if err := s.repo.Insert(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store activity log")
	}

	s.metrics.RecordSuggestionEvent(string(log.Event), string(log.Mode))
	s.invalidate(ctx, log)
	return log, nil
}

// List returns activity logs with pagination metadata.
func (s *ActivityLogService) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, *models.Pagination, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity logs")
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

// invalidate drops cached stats derived from the event's user and class.
func (s *ActivityLogService) invalidate(ctx context.Context, log *models.ActivityLog) {
	if s.cache == nil {
		return
	}
	patterns := []string{fmt.Sprintf("stats:*user:%s*", log.UserID)}
	if log.ClassID != nil {
		patterns = append(patterns, fmt.Sprintf("stats:*class:%s*", *log.ClassID))
	}
	if err := s.cache.InvalidateMany(ctx, patterns...); err != nil {
		s.logger.Warn("activity log cache invalidation failed", zap.Error(err))
	}
}
