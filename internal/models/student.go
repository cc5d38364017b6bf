package models

// Student is a read projection of a user in the student directory. The user
// directory is owned by an external collaborator; this module only joins
// against it.
type Student struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Email   *string `db:"email" json:"email,omitempty"`
	ClassID string  `db:"class_id" json:"class_id"`
}
