package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// EvaluationRepository handles persistence for graded assessments.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `id, title, subject, eval_type, date, max_grade, coefficient, class_id, teacher_id, created_at, updated_at`

// Create inserts a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, eval *models.Evaluation) error {
	now := time.Now().UTC()
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	eval.CreatedAt = now
	eval.UpdatedAt = now
	query := `INSERT INTO evaluations (id, title, subject, eval_type, date, max_grade, coefficient, class_id, teacher_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query, eval.ID, eval.Title, eval.Subject, eval.EvalType, eval.Date, eval.MaxGrade, eval.Coefficient, eval.ClassID, eval.TeacherID, eval.CreatedAt, eval.UpdatedAt); err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// FindByID loads a single evaluation.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE id = $1`, evaluationColumns)
	var eval models.Evaluation
	if err := r.db.GetContext(ctx, &eval, query, id); err != nil {
		return nil, fmt.Errorf("find evaluation: %w", err)
	}
	return &eval, nil
}

// List returns evaluations matching the filter, newest first.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Subject != "" {
		where = append(where, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`,
		evaluationColumns, whereClause, size, offset)
	var rows []models.Evaluation
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM evaluations WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}
	return rows, total, nil
}

// ListByClass returns every evaluation for a class, optionally scoped to a
// subject, without pagination. Used by the aggregation paths which need the
// full snapshot.
func (r *EvaluationRepository) ListByClass(ctx context.Context, classID, subject string) ([]models.Evaluation, error) {
	where := []string{"class_id = $1"}
	args := []interface{}{classID}
	if subject != "" {
		where = append(where, "subject = $2")
		args = append(args, subject)
	}
	query := fmt.Sprintf(`SELECT %s FROM evaluations WHERE %s ORDER BY date`, evaluationColumns, strings.Join(where, " AND "))
	var rows []models.Evaluation
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list evaluations by class: %w", err)
	}
	return rows, nil
}
