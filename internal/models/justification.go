package models

import "time"

// JustificationStatus tracks the review state machine. Pending is the only
// non-terminal state; approved and rejected accept no further transitions.
type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending"
	JustificationApproved JustificationStatus = "approved"
	JustificationRejected JustificationStatus = "rejected"
)

// Terminal reports whether the status accepts no further transitions.
func (s JustificationStatus) Terminal() bool {
	return s == JustificationApproved || s == JustificationRejected
}

// Justification is a parent/student request to reclassify an absence or
// lateness as excused. Several justifications may target the same entry;
// there is deliberately no uniqueness constraint here.
type Justification struct {
	ID         string              `db:"id" json:"id"`
	EntryID    string              `db:"entry_id" json:"entry_id"`
	StudentID  string              `db:"student_id" json:"student_id"`
	ParentID   *string             `db:"parent_id" json:"parent_id,omitempty"`
	Text       string              `db:"text" json:"text"`
	Status     JustificationStatus `db:"status" json:"status"`
	ReviewedBy *string             `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// JustificationFilter scopes justification listings.
type JustificationFilter struct {
	EntryID   string
	StudentID string
	Status    *JustificationStatus
}
