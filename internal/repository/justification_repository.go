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

// JustificationRepository persists justification requests. Unlike entries
// and grades there is no uniqueness constraint: each submission inserts a
// new row, even for an already-justified entry.
type JustificationRepository struct {
	db *sqlx.DB
}

// NewJustificationRepository constructs the repository.
func NewJustificationRepository(db *sqlx.DB) *JustificationRepository {
	return &JustificationRepository{db: db}
}

const justificationColumns = `id, entry_id, student_id, parent_id, text, status, reviewed_by, reviewed_at, created_at, updated_at`

// Insert creates a new pending justification.
func (r *JustificationRepository) Insert(ctx context.Context, j *models.Justification) error {
	now := time.Now().UTC()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Status = models.JustificationPending
	j.CreatedAt = now
	j.UpdatedAt = now
	query := `INSERT INTO attendance_justifications (id, entry_id, student_id, parent_id, text, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, j.ID, j.EntryID, j.StudentID, j.ParentID, j.Text, j.Status, j.CreatedAt, j.UpdatedAt); err != nil {
		return fmt.Errorf("insert justification: %w", err)
	}
	return nil
}

// FindByID loads a single justification.
func (r *JustificationRepository) FindByID(ctx context.Context, id string) (*models.Justification, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_justifications WHERE id = $1`, justificationColumns)
	var j models.Justification
	if err := r.db.GetContext(ctx, &j, query, id); err != nil {
		return nil, fmt.Errorf("find justification: %w", err)
	}
	return &j, nil
}

// List returns justifications matching the filter, newest first.
func (r *JustificationRepository) List(ctx context.Context, filter models.JustificationFilter) ([]models.Justification, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EntryID != "" {
		where = append(where, fmt.Sprintf("entry_id = $%d", len(args)+1))
		args = append(args, filter.EntryID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	query := fmt.Sprintf(`SELECT %s FROM attendance_justifications WHERE %s ORDER BY created_at DESC`,
		justificationColumns, strings.Join(where, " AND "))
	var rows []models.Justification
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	return rows, nil
}

// MarkReviewed stamps the terminal decision. The WHERE clause only matches
// pending rows, so a concurrent or repeated review affects zero rows and the
// caller can report the conflict.
func (r *JustificationRepository) MarkReviewed(ctx context.Context, id string, status models.JustificationStatus, reviewerID string, reviewedAt time.Time) (bool, error) {
	query := `UPDATE attendance_justifications
SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $4
WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, status, reviewerID, reviewedAt, time.Now().UTC(), id, models.JustificationPending)
	if err != nil {
		return false, fmt.Errorf("mark justification reviewed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark justification reviewed rows affected: %w", err)
	}
	return affected > 0, nil
}
