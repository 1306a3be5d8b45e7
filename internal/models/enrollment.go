package models

import "time"

// EnrollmentStatus represents the lifecycle of a user's relationship to a class.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusRejected   EnrollmentStatus = "REJECTED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusRemoved    EnrollmentStatus = "REMOVED"
)

// Enrollment captures a user's registration to a class.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with user and class info.
type EnrollmentDetail struct {
	Enrollment
	UserName   string `db:"user_name" json:"user_name"`
	UserEmail  string `db:"user_email" json:"user_email"`
	ClassTitle string `db:"class_title" json:"class_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    string
	ClassID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// EnrollmentActionKind enumerates the user-facing enrollment actions.
type EnrollmentActionKind string

// Action kinds accepted by the enrollment dispatcher.
const (
	ActionJoin     EnrollmentActionKind = "join"
	ActionLeave    EnrollmentActionKind = "leave"
	ActionCancel   EnrollmentActionKind = "cancel"
	ActionAccept   EnrollmentActionKind = "accept"
	ActionReject   EnrollmentActionKind = "reject"
	ActionComplete EnrollmentActionKind = "complete"
	ActionRemove   EnrollmentActionKind = "remove"
)

// EnrollmentAction is a single semantic action requested against an enrollment.
// ActorID identifies who requested the action; it is set server-side from the
// authenticated session, never from the request body.
type EnrollmentAction struct {
	Kind       EnrollmentActionKind `json:"kind" validate:"required"`
	ClassID    string               `json:"class_id" validate:"required"`
	UserID     string               `json:"user_id" validate:"required"`
	ClassTitle string               `json:"class_title,omitempty"`
	ActorID    string               `json:"-"`
}

// DispatchResult carries the user-facing outcome of a dispatched action.
type DispatchResult struct {
	Message string `json:"message"`
}
