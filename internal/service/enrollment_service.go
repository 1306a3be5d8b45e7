package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByClassAndUser(ctx context.Context, classID, userID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, classID, userID string) error
	UpdateStatus(ctx context.Context, classID, userID string, status models.EnrollmentStatus) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type enrollmentClassReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

// EnrollmentService orchestrates class membership workflows. Every
// user-facing enrollment action funnels through Dispatch, which maps the
// action kind onto exactly one primitive mutation.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   enrollmentClassReader
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. A nil audit recorder
// disables the activity trail.
func NewEnrollmentService(repo enrollmentRepository, classes enrollmentClassReader, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, classes: classes, cache: cache, audit: audit, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Register creates a waitlisted enrollment for the class/user pair.
// Capacity is not checked here: joining lands on the waitlist and an
// instructor decides who gets in.
func (s *EnrollmentService) Register(ctx context.Context, classID, userID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	existing, err := s.repo.FindByClassAndUser(ctx, classID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if existing != nil {
		return appErrors.Clone(appErrors.ErrConflict, "Already enrolled")
	}

	enrollment := &models.Enrollment{
		ClassID: classID,
		UserID:  userID,
		Status:  models.EnrollmentStatusWaitlisted,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return nil
}

// Unregister removes the enrollment record regardless of its current status.
func (s *EnrollmentService) Unregister(ctx context.Context, classID, userID string) error {
	if err := s.repo.Delete(ctx, classID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// SetStatus moves the enrollment for a class/user pair to a new status.
func (s *EnrollmentService) SetStatus(ctx context.Context, classID, userID string, status models.EnrollmentStatus) error {
	if err := s.repo.UpdateStatus(ctx, classID, userID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	return nil
}

// Dispatch executes one enrollment action and returns the user-facing
// outcome. Each kind performs exactly one mutation; backend errors surface
// unchanged so the caller sees the real reason.
func (s *EnrollmentService) Dispatch(ctx context.Context, action models.EnrollmentAction) (*models.DispatchResult, error) {
	if err := s.validator.Struct(action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment action")
	}

	var (
		err     error
		message string
	)
	switch action.Kind {
	case models.ActionJoin:
		err = s.Register(ctx, action.ClassID, action.UserID)
		message = "Successfully joined class!"
	case models.ActionLeave:
		err = s.Unregister(ctx, action.ClassID, action.UserID)
		message = "Successfully left class."
	case models.ActionCancel:
		err = s.Unregister(ctx, action.ClassID, action.UserID)
		message = "Join request cancelled."
	case models.ActionRemove:
		err = s.Unregister(ctx, action.ClassID, action.UserID)
		message = "Student removed from class."
	case models.ActionAccept:
		err = s.SetStatus(ctx, action.ClassID, action.UserID, models.EnrollmentStatusEnrolled)
		message = "Student accepted into class."
	case models.ActionReject:
		err = s.SetStatus(ctx, action.ClassID, action.UserID, models.EnrollmentStatusRejected)
		message = "Join request rejected."
	case models.ActionComplete:
		err = s.SetStatus(ctx, action.ClassID, action.UserID, models.EnrollmentStatusCompleted)
		message = "Class marked as completed for student."
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown enrollment action %q", action.Kind))
	}

	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		details, _ := json.Marshal(map[string]string{
			"kind":    string(action.Kind),
			"user_id": action.UserID,
		})
		actorID := action.ActorID
		s.audit.Record(ctx, models.AuditLog{
			ActorID:    &actorID,
			Action:     models.AuditActionEnrollment,
			Resource:   "enrollment",
			ResourceID: &action.ClassID,
			Details:    details,
		})
	}

	s.invalidate(ctx, action.ClassID, action.UserID)
	return &models.DispatchResult{Message: message}, nil
}

// invalidate drops cached stats and listings touched by an enrollment change.
func (s *EnrollmentService) invalidate(ctx context.Context, classID, userID string) {
	if s.cache == nil {
		return
	}
	patterns := []string{
		fmt.Sprintf("stats:*:class:%s*", classID),
		fmt.Sprintf("stats:*:user:%s*", userID),
		fmt.Sprintf("classes:%s*", classID),
	}
	if err := s.cache.InvalidateMany(ctx, patterns...); err != nil {
		s.logger.Warn("enrollment cache invalidation failed", zap.Error(err))
	}
}
