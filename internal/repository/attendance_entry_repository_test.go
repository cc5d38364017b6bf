package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

func newEntryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceEntryBulkUpsertUsesConflictKey(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewAttendanceEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO attendance_entries .*ON CONFLICT \(record_id, student_id\)`).
		WithArgs(sqlmock.AnyArg(), "rec1", "stu1", "Alice Martin", string(models.EntryStatusPresent), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO attendance_entries .*ON CONFLICT \(record_id, student_id\)`).
		WithArgs(sqlmock.AnyArg(), "rec1", "stu2", "Bruno Petit", string(models.EntryStatusLate), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	arrival := "08:17"
	entries := []models.AttendanceEntry{
		{RecordID: "rec1", StudentID: "stu1", StudentName: "Alice Martin", Status: models.EntryStatusPresent},
		{RecordID: "rec1", StudentID: "stu2", StudentName: "Bruno Petit", Status: models.EntryStatusLate, ArrivalTime: &arrival},
	}
	err := repo.BulkUpsert(context.Background(), entries)
	require.NoError(t, err)
	assert.NotEmpty(t, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceEntryBulkUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewAttendanceEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO attendance_entries`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO attendance_entries`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	entries := []models.AttendanceEntry{
		{RecordID: "rec1", StudentID: "stu1", StudentName: "Alice Martin", Status: models.EntryStatusPresent},
		{RecordID: "rec1", StudentID: "stu2", StudentName: "Bruno Petit", Status: models.EntryStatusAbsent},
	}
	err := repo.BulkUpsert(context.Background(), entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stu2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceEntryApplyExcusal(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewAttendanceEntryRepository(db)

	mock.ExpectExec(`UPDATE attendance_entries`).
		WithArgs(string(models.EntryStatusExcused), "rendez-vous medical", sqlmock.AnyArg(), sqlmock.AnyArg(), "entry1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyExcusal(context.Background(), "entry1", "rendez-vous medical", time.Now().UTC())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceEntryApplyExcusalMissingEntry(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewAttendanceEntryRepository(db)

	mock.ExpectExec(`UPDATE attendance_entries`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyExcusal(context.Background(), "ghost", "text", time.Now().UTC())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceEntryListByRecord(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewAttendanceEntryRepository(db)

	rows := sqlmock.NewRows([]string{"id", "record_id", "student_id", "student_name", "status", "arrival_time", "justification", "justification_provided_at", "notes", "created_at", "updated_at"}).
		AddRow("e1", "rec1", "stu1", "Alice Martin", "present", nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .* FROM attendance_entries WHERE record_id`).
		WithArgs("rec1").
		WillReturnRows(rows)

	entries, err := repo.ListByRecord(context.Background(), "rec1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, models.EntryStatusPresent, entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
