package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// AttendanceEntryRepository handles the per-student rows under a record.
// Uniqueness per (record_id, student_id) is enforced by the upsert conflict
// key, not by application-side locking.
type AttendanceEntryRepository struct {
	db *sqlx.DB
}

// NewAttendanceEntryRepository constructs the repository.
func NewAttendanceEntryRepository(db *sqlx.DB) *AttendanceEntryRepository {
	return &AttendanceEntryRepository{db: db}
}

const entryColumns = `id, record_id, student_id, student_name, status, arrival_time, justification, justification_provided_at, notes, created_at, updated_at`

// FindByID loads a single entry.
func (r *AttendanceEntryRepository) FindByID(ctx context.Context, id string) (*models.AttendanceEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_entries WHERE id = $1`, entryColumns)
	var entry models.AttendanceEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, fmt.Errorf("find attendance entry: %w", err)
	}
	return &entry, nil
}

// ListByRecord returns all entries for a record ordered by student name.
func (r *AttendanceEntryRepository) ListByRecord(ctx context.Context, recordID string) ([]models.AttendanceEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_entries WHERE record_id = $1 ORDER BY student_name`, entryColumns)
	var rows []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &rows, query, recordID); err != nil {
		return nil, fmt.Errorf("list attendance entries: %w", err)
	}
	return rows, nil
}

// ListByStudent returns a student's entries across records, newest first.
func (r *AttendanceEntryRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_entries WHERE student_id = $1 ORDER BY created_at DESC`, entryColumns)
	var rows []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance entries: %w", err)
	}
	return rows, nil
}

// BulkUpsert writes a batch of entries in one transaction. A second write
// for the same (record_id, student_id) replaces the stored row, never
// duplicates it. Any failed item rolls the whole batch back so the caller
// sees a single aggregate error.
func (r *AttendanceEntryRepository) BulkUpsert(ctx context.Context, entries []models.AttendanceEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert entries: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	query := `INSERT INTO attendance_entries (id, record_id, student_id, student_name, status, arrival_time, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (record_id, student_id)
DO UPDATE SET student_name = EXCLUDED.student_name, status = EXCLUDED.status, arrival_time = EXCLUDED.arrival_time, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query, entry.ID, entry.RecordID, entry.StudentID, entry.StudentName, entry.Status, entry.ArrivalTime, entry.Notes, entry.CreatedAt, entry.UpdatedAt); err != nil {
			return fmt.Errorf("upsert entry for student %s: %w", entry.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert entries: %w", err)
	}
	committed = true
	return nil
}

// ApplyExcusal rewrites an entry to the excused state carrying the approved
// justification text. The update targets a fixed end-state, so re-running it
// after a partial approval failure is safe.
func (r *AttendanceEntryRepository) ApplyExcusal(ctx context.Context, entryID, justificationText string, providedAt time.Time) error {
	query := `UPDATE attendance_entries
SET status = $1, justification = $2, justification_provided_at = $3, updated_at = $4
WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, models.EntryStatusExcused, justificationText, providedAt, time.Now().UTC(), entryID)
	if err != nil {
		return fmt.Errorf("apply excusal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply excusal rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("apply excusal: entry %s not found", entryID)
	}
	return nil
}

// CountByRecord reports how many entries a record owns.
func (r *AttendanceEntryRepository) CountByRecord(ctx context.Context, recordID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendance_entries WHERE record_id = $1`, recordID); err != nil {
		return 0, fmt.Errorf("count attendance entries: %w", err)
	}
	return count, nil
}
