package models

import "time"

// Audit action constants for the admin activity trail.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionEnrollment     = "ENROLLMENT_ACTION"
	AuditActionErrorResolve   = "ERROR_RESOLVE"
	AuditActionConsentUpdate  = "CONSENT_UPDATE"
)

// AuditLog records one sensitive action for the admin activity trail.
// Details carries action-specific JSON (the enrollment kind, the consent
// version) rather than before/after row diffs.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter scopes audit trail queries.
type AuditLogFilter struct {
	ActorID  string
	Action   string
	Resource string
	Page     int
	PageSize int
}
