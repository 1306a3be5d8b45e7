package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clover-lab/clover-api/internal/models"
)

// ConsentRepository provides database access for consent form versions.
// Forms are versioned append-only: an edit creates the next version.
type ConsentRepository struct {
	db *sqlx.DB
}

// NewConsentRepository creates a new instance of ConsentRepository.
func NewConsentRepository(db *sqlx.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// Latest returns the newest consent form version.
func (r *ConsentRepository) Latest(ctx context.Context) (*models.ConsentForm, error) {
	const query = `SELECT id, version, content, updated_by, created_at FROM consent_forms ORDER BY version DESC LIMIT 1`
	var form models.ConsentForm
	if err := r.db.GetContext(ctx, &form, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest consent form: %w", err)
	}
	return &form, nil
}

// Create appends a new version, numbered one past the current latest.
func (r *ConsentRepository) Create(ctx context.Context, form *models.ConsentForm) error {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	if form.CreatedAt.IsZero() {
		form.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO consent_forms (id, version, content, updated_by, created_at)
        VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM consent_forms), $2, $3, $4)
        RETURNING version`
	if err := r.db.GetContext(ctx, &form.Version, query, form.ID, form.Content, form.UpdatedBy, form.CreatedAt); err != nil {
		return fmt.Errorf("create consent form: %w", err)
	}
	return nil
}

// History returns all versions, newest first.
func (r *ConsentRepository) History(ctx context.Context, limit int) ([]models.ConsentForm, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT id, version, content, updated_by, created_at FROM consent_forms ORDER BY version DESC LIMIT %d", limit)

	var forms []models.ConsentForm
	if err := r.db.SelectContext(ctx, &forms, query); err != nil {
		return nil, fmt.Errorf("consent form history: %w", err)
	}
	return forms, nil
}
