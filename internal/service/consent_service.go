package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type consentRepository interface {
	Latest(ctx context.Context) (*models.ConsentForm, error)
	Create(ctx context.Context, form *models.ConsentForm) error
	History(ctx context.Context, limit int) ([]models.ConsentForm, error)
}

// UpdateConsentRequest replaces the consent form text with a new version.
type UpdateConsentRequest struct {
	Content string `json:"content" validate:"required"`
}

// ConsentService manages research consent form versions.
type ConsentService struct {
	repo      consentRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConsentService constructs ConsentService. A nil audit recorder
// disables the activity trail.
func NewConsentService(repo consentRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ConsentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsentService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Latest returns the current consent form version.
func (s *ConsentService) Latest(ctx context.Context) (*models.ConsentForm, error) {
	form, err := s.repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no consent form published")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consent form")
	}
	return form, nil
}

// Update publishes a new consent form version. Previous versions stay intact.
func (s *ConsentService) Update(ctx context.Context, updatedBy string, req UpdateConsentRequest) (*models.ConsentForm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid consent payload")
	}

	form := &models.ConsentForm{Content: req.Content, UpdatedBy: updatedBy}
	if err := s.repo.Create(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish consent form")
	}

	if s.audit != nil {
		actorID := updatedBy
		details, _ := json.Marshal(map[string]int{"version": form.Version})
		s.audit.Record(ctx, models.AuditLog{
			ActorID:  &actorID,
			Action:   models.AuditActionConsentUpdate,
			Resource: "consent_form",
			Details:  details,
		})
	}

	return form, nil
}

// History returns past versions, newest first.
func (s *ConsentService) History(ctx context.Context, limit int) ([]models.ConsentForm, error) {
	forms, err := s.repo.History(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consent history")
	}
	return forms, nil
}
