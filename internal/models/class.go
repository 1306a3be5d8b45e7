package models

import "time"

// Class represents a course offering students can join.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with instructor and enrollment context.
type ClassDetail struct {
	Class
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	EnrolledCount  int    `db:"enrolled_count" json:"enrolled_count"`
	WaitlistCount  int    `db:"waitlist_count" json:"waitlist_count"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// RosterEntry is one student row of a class roster view.
type RosterEntry struct {
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	UserID       string           `db:"user_id" json:"user_id"`
	FullName     string           `db:"full_name" json:"full_name"`
	Email        string           `db:"email" json:"email"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	JoinedAt     time.Time        `db:"joined_at" json:"joined_at"`
}
