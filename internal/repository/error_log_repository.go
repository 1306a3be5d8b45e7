package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clover-lab/clover-api/internal/models"
)

// ErrorLogRepository provides database access for error logs.
type ErrorLogRepository struct {
	db *sqlx.DB
}

// NewErrorLogRepository creates a new instance of ErrorLogRepository.
func NewErrorLogRepository(db *sqlx.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

// Insert stores one error log entry.
func (r *ErrorLogRepository) Insert(ctx context.Context, log *models.ErrorLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO error_logs (id, user_id, message, stack, source, resolved, created_at) VALUES (:id, :user_id, :message, :stack, :source, :resolved, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}

// FindByID returns one error log entry.
func (r *ErrorLogRepository) FindByID(ctx context.Context, id string) (*models.ErrorLog, error) {
	const query = `SELECT id, user_id, message, stack, source, resolved, resolved_by, resolved_at, created_at FROM error_logs WHERE id = $1 LIMIT 1`
	var log models.ErrorLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

// List returns error logs matching the filter with total count.
func (r *ErrorLogRepository) List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, int, error) {
	baseQuery := `FROM error_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, filter.Source)
	}
	if filter.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", len(args)+1))
		args = append(args, *filter.Resolved)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"created_at": true,
		"source":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, message, stack, source, resolved, resolved_by, resolved_at, created_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var logs []models.ErrorLog
	if err := r.db.SelectContext(ctx, &logs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list error logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count error logs: %w", err)
	}

	return logs, total, nil
}

// MarkResolved records who resolved the error and when.
func (r *ErrorLogRepository) MarkResolved(ctx context.Context, id, resolvedBy string) error {
	const query = `UPDATE error_logs SET resolved = TRUE, resolved_by = $2, resolved_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, resolvedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark error log resolved: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
