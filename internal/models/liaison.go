package models

import "time"

// LiaisonEntry is a note in the class liaison notebook. Created by teachers
// or admins; parents acknowledge entries that require a signature.
type LiaisonEntry struct {
	ID                string    `db:"id" json:"id"`
	ClassID           string    `db:"class_id" json:"class_id"`
	AuthorID          string    `db:"author_id" json:"author_id"`
	Title             string    `db:"title" json:"title"`
	Body              string    `db:"body" json:"body"`
	Category          string    `db:"category" json:"category"`
	RequiresSignature bool      `db:"requires_signature" json:"requires_signature"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// LiaisonSignature records a parent sign-off. One row per
// (entry_id, parent_id); a duplicate sign is reported as an informational
// conflict since the desired end-state already holds.
type LiaisonSignature struct {
	ID       string    `db:"id" json:"id"`
	EntryID  string    `db:"entry_id" json:"entry_id"`
	ParentID string    `db:"parent_id" json:"parent_id"`
	SignedAt time.Time `db:"signed_at" json:"signed_at"`
}
