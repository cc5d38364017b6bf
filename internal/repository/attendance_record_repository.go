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

// AttendanceRecordRepository handles persistence for roll-call sessions.
type AttendanceRecordRepository struct {
	db *sqlx.DB
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db}
}

// Create inserts a new attendance record.
func (r *AttendanceRecordRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	query := `INSERT INTO attendance_records (id, date, class_id, course_name, teacher_id, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.Date, record.ClassID, record.CourseName, record.TeacherID, record.Notes, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// FindByID loads a single record.
func (r *AttendanceRecordRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := `SELECT id, date, class_id, course_name, teacher_id, notes, created_at, updated_at
FROM attendance_records WHERE id = $1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// List returns records matching the filter, newest first.
func (r *AttendanceRecordRepository) List(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	query := fmt.Sprintf(`SELECT id, date, class_id, course_name, teacher_id, notes, created_at, updated_at
FROM attendance_records WHERE %s
ORDER BY date DESC
LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// UpdateNotes is the only mutation allowed once a record has entries.
func (r *AttendanceRecordRepository) UpdateNotes(ctx context.Context, id string, notes *string) error {
	query := `UPDATE attendance_records SET notes = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, notes, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update attendance record notes: %w", err)
	}
	return nil
}

// Delete removes a record and its entries.
func (r *AttendanceRecordRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete attendance record: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_entries WHERE record_id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete attendance record: %w", err)
	}
	committed = true
	return nil
}
