package models

import "time"

// ErrorLog records an application error reported by the client or backend.
type ErrorLog struct {
	ID         string     `db:"id" json:"id"`
	UserID     *string    `db:"user_id" json:"user_id,omitempty"`
	Message    string     `db:"message" json:"message"`
	Stack      string     `db:"stack" json:"stack"`
	Source     string     `db:"source" json:"source"`
	Resolved   bool       `db:"resolved" json:"resolved"`
	ResolvedBy *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ErrorLogFilter scopes error log listings.
type ErrorLogFilter struct {
	UserID    string
	Source    string
	Resolved  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
