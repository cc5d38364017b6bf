package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// LiaisonRepository persists liaison notebook entries and parent sign-offs.
type LiaisonRepository struct {
	db *sqlx.DB
}

// NewLiaisonRepository constructs the repository.
func NewLiaisonRepository(db *sqlx.DB) *LiaisonRepository {
	return &LiaisonRepository{db: db}
}

const liaisonColumns = `id, class_id, author_id, title, body, category, requires_signature, created_at, updated_at`

// Insert creates a liaison entry.
func (r *LiaisonRepository) Insert(ctx context.Context, entry *models.LiaisonEntry) error {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	query := `INSERT INTO liaison_entries (id, class_id, author_id, title, body, category, requires_signature, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.ClassID, entry.AuthorID, entry.Title, entry.Body, entry.Category, entry.RequiresSignature, entry.CreatedAt, entry.UpdatedAt); err != nil {
		return fmt.Errorf("insert liaison entry: %w", err)
	}
	return nil
}

// FindByID loads a single liaison entry.
func (r *LiaisonRepository) FindByID(ctx context.Context, id string) (*models.LiaisonEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM liaison_entries WHERE id = $1`, liaisonColumns)
	var entry models.LiaisonEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, fmt.Errorf("find liaison entry: %w", err)
	}
	return &entry, nil
}

// ListByClass returns liaison entries for a class, newest first.
func (r *LiaisonRepository) ListByClass(ctx context.Context, classID string) ([]models.LiaisonEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM liaison_entries WHERE class_id = $1 ORDER BY created_at DESC`, liaisonColumns)
	var rows []models.LiaisonEntry
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("list liaison entries: %w", err)
	}
	return rows, nil
}

// Sign records a parent signature. Returns false when the signature already
// existed; the desired end-state holds either way.
func (r *LiaisonRepository) Sign(ctx context.Context, signature *models.LiaisonSignature) (bool, error) {
	if signature.ID == "" {
		signature.ID = uuid.NewString()
	}
	if signature.SignedAt.IsZero() {
		signature.SignedAt = time.Now().UTC()
	}
	query := `INSERT INTO liaison_signatures (id, entry_id, parent_id, signed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entry_id, parent_id) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.GetContext(ctx, &insertedID, query, signature.ID, signature.EntryID, signature.ParentID, signature.SignedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sign liaison entry: %w", err)
	}
	return true, nil
}

// ListSignatures returns the sign-offs recorded for an entry.
func (r *LiaisonRepository) ListSignatures(ctx context.Context, entryID string) ([]models.LiaisonSignature, error) {
	query := `SELECT id, entry_id, parent_id, signed_at FROM liaison_signatures WHERE entry_id = $1 ORDER BY signed_at`
	var rows []models.LiaisonSignature
	if err := r.db.SelectContext(ctx, &rows, query, entryID); err != nil {
		return nil, fmt.Errorf("list liaison signatures: %w", err)
	}
	return rows, nil
}
