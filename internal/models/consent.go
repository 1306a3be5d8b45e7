package models

import "time"

// ConsentForm is one version of the research consent form shown to students.
type ConsentForm struct {
	ID        string    `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	Content   string    `db:"content" json:"content"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
