package models

import "time"

// Evaluation defines a graded assessment. Coefficient weights it in the
// per-student average; MaxGrade is the raw scale of this one assessment.
type Evaluation struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Subject     string    `db:"subject" json:"subject"`
	EvalType    string    `db:"eval_type" json:"eval_type"`
	Date        time.Time `db:"date" json:"date"`
	MaxGrade    float64   `db:"max_grade" json:"max_grade"`
	Coefficient float64   `db:"coefficient" json:"coefficient"`
	ClassID     string    `db:"class_id" json:"class_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Grade is the per-student child row under an evaluation. A nil Grade value
// means "not yet graded" and is excluded from averages, never treated as
// zero. One row per (evaluation_id, student_id), upsert enforced.
type Grade struct {
	ID           string     `db:"id" json:"id"`
	EvaluationID string     `db:"evaluation_id" json:"evaluation_id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Grade        *float64   `db:"grade" json:"grade"`
	Comment      *string    `db:"comment" json:"comment,omitempty"`
	GradedBy     *string    `db:"graded_by" json:"graded_by,omitempty"`
	GradedAt     *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// EvaluationFilter scopes evaluation listings.
type EvaluationFilter struct {
	ClassID   string
	Subject   string
	TeacherID string
	Page      int
	PageSize  int
}

// StudentAverageRow is a computed per-student average on the fixed scale.
type StudentAverageRow struct {
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	Average     *float64 `json:"average"`
}

// ClassGradeSummary bundles per-student averages with the class mean.
type ClassGradeSummary struct {
	ClassID      string              `json:"class_id"`
	Subject      string              `json:"subject,omitempty"`
	ClassAverage *float64            `json:"class_average"`
	Students     []StudentAverageRow `json:"students"`
}
