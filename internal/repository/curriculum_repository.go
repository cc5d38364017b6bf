package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// CurriculumRepository persists subjects, topics and per-class progress.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository constructs the repository.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// ListSubjects returns the subjects taught to a class.
func (r *CurriculumRepository) ListSubjects(ctx context.Context, classID string) ([]models.CurriculumSubject, error) {
	query := `SELECT id, name, class_id, created_at, updated_at FROM curriculum_subjects WHERE class_id = $1 ORDER BY name`
	var rows []models.CurriculumSubject
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list curriculum subjects: %w", err)
	}
	return rows, nil
}

// ListTopics returns a subject's topics in teaching order.
func (r *CurriculumRepository) ListTopics(ctx context.Context, subjectID string) ([]models.CurriculumTopic, error) {
	query := `SELECT id, subject_id, title, position, created_at FROM curriculum_topics WHERE subject_id = $1 ORDER BY position`
	var rows []models.CurriculumTopic
	if err := r.db.SelectContext(ctx, &rows, query, subjectID); err != nil {
		return nil, fmt.Errorf("list curriculum topics: %w", err)
	}
	return rows, nil
}

// CountTopics returns total and completed topic counts for a subject/class.
func (r *CurriculumRepository) CountTopics(ctx context.Context, subjectID, classID string) (total int, completed int, err error) {
	if err = r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM curriculum_topics WHERE subject_id = $1`, subjectID); err != nil {
		return 0, 0, fmt.Errorf("count curriculum topics: %w", err)
	}
	query := `SELECT COUNT(*)
FROM curriculum_progress p
JOIN curriculum_topics t ON t.id = p.topic_id
WHERE t.subject_id = $1 AND p.class_id = $2 AND p.completed`
	if err = r.db.GetContext(ctx, &completed, query, subjectID, classID); err != nil {
		return 0, 0, fmt.Errorf("count completed topics: %w", err)
	}
	return total, completed, nil
}

// UpsertProgress records topic completion for a class, keyed on
// (topic_id, class_id).
func (r *CurriculumRepository) UpsertProgress(ctx context.Context, progress *models.TopicProgress) error {
	now := time.Now().UTC()
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now
	if progress.Completed && progress.CompletedAt == nil {
		progress.CompletedAt = &now
	}
	if !progress.Completed {
		progress.CompletedAt = nil
	}
	query := `INSERT INTO curriculum_progress (id, topic_id, class_id, completed, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (topic_id, class_id)
DO UPDATE SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, progress.ID, progress.TopicID, progress.ClassID, progress.Completed, progress.CompletedAt, progress.CreatedAt, progress.UpdatedAt); err != nil {
		return fmt.Errorf("upsert topic progress: %w", err)
	}
	return nil
}
