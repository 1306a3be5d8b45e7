package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	Roster(ctx context.Context, classID string) ([]models.RosterEntry, error)
}

type classUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateClassRequest describes class creation payload.
type CreateClassRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	InstructorID string `json:"instructor_id" validate:"required"`
	Capacity     int    `json:"capacity" validate:"gte=0"`
}

// UpdateClassRequest describes mutable class fields.
type UpdateClassRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Capacity    *int    `json:"capacity,omitempty" validate:"omitempty,gte=0"`
}

// ClassService orchestrates class management workflows.
type ClassService struct {
	repo      classRepository
	users     classUserReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, users classUserReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// Get returns a class with instructor and enrollment context.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
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
	return classes, pagination, nil
}

// Create registers a new class led by an instructor.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	instructor, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor && instructor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user cannot lead a class")
	}

	class := &models.Class{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: req.InstructorID,
		Capacity:     req.Capacity,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update patches mutable class fields.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	class := detail.Class

	if req.Title != nil {
		class.Title = *req.Title
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}

	if err := s.repo.Update(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.invalidate(ctx, id)
	return &class, nil
}

// Delete removes a class together with its enrollments.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.invalidate(ctx, id)
	return nil
}

// Roster returns the class membership view for instructors.
func (s *ClassService) Roster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	roster, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

func (s *ClassService) invalidate(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("classes:%s*", classID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("class cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
