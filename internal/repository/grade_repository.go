package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// GradeRepository handles the per-student rows under an evaluation.
// Uniqueness per (evaluation_id, student_id) is enforced by the upsert
// conflict key.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = `id, evaluation_id, student_id, grade, comment, graded_by, graded_at, created_at, updated_at`

// ListByEvaluation returns all grades for one evaluation.
func (r *GradeRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE evaluation_id = $1 ORDER BY student_id`, gradeColumns)
	var rows []models.Grade
	if err := r.db.SelectContext(ctx, &rows, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return rows, nil
}

// ListByClass returns every grade attached to a class's evaluations,
// optionally scoped to a subject. Feeds the aggregation snapshot.
func (r *GradeRepository) ListByClass(ctx context.Context, classID, subject string) ([]models.Grade, error) {
	query := `SELECT g.id, g.evaluation_id, g.student_id, g.grade, g.comment, g.graded_by, g.graded_at, g.created_at, g.updated_at
FROM grades g
JOIN evaluations e ON e.id = g.evaluation_id
WHERE e.class_id = $1 AND ($2 = '' OR e.subject = $2)`
	var rows []models.Grade
	if err := r.db.SelectContext(ctx, &rows, query, classID, subject); err != nil {
		return nil, fmt.Errorf("list grades by class: %w", err)
	}
	return rows, nil
}

// ListByStudent returns a student's grades across evaluations.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE student_id = $1 ORDER BY created_at DESC`, gradeColumns)
	var rows []models.Grade
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades by student: %w", err)
	}
	return rows, nil
}

// BulkUpsert writes a batch of grades in one transaction, replacing any
// existing row for the same (evaluation_id, student_id). Any failed item
// rolls the whole batch back.
func (r *GradeRepository) BulkUpsert(ctx context.Context, grades []models.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert grades: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	query := `INSERT INTO grades (id, evaluation_id, student_id, grade, comment, graded_by, graded_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (evaluation_id, student_id)
DO UPDATE SET grade = EXCLUDED.grade, comment = EXCLUDED.comment, graded_by = EXCLUDED.graded_by, graded_at = EXCLUDED.graded_at, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range grades {
		grade := &grades[i]
		if grade.ID == "" {
			grade.ID = uuid.NewString()
		}
		if grade.CreatedAt.IsZero() {
			grade.CreatedAt = now
		}
		grade.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query, grade.ID, grade.EvaluationID, grade.StudentID, grade.Grade, grade.Comment, grade.GradedBy, grade.GradedAt, grade.CreatedAt, grade.UpdatedAt); err != nil {
			return fmt.Errorf("upsert grade for student %s: %w", grade.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert grades: %w", err)
	}
	committed = true
	return nil
}
