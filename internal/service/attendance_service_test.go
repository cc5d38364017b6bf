package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type fakeRecordRepo struct {
	records map[string]*models.AttendanceRecord
	created *models.AttendanceRecord
}

func (f *fakeRecordRepo) Create(_ context.Context, record *models.AttendanceRecord) error {
	record.ID = "rec-new"
	f.created = record
	return nil
}

func (f *fakeRecordRepo) FindByID(_ context.Context, id string) (*models.AttendanceRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (f *fakeRecordRepo) List(_ context.Context, _ models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error) {
	var out []models.AttendanceRecord
	for _, record := range f.records {
		out = append(out, *record)
	}
	return out, len(out), nil
}

func (f *fakeRecordRepo) UpdateNotes(_ context.Context, id string, notes *string) error {
	f.records[id].Notes = notes
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, id string) error {
	delete(f.records, id)
	return nil
}

type fakeEntryRepo struct {
	byRecord map[string][]models.AttendanceEntry
	upserted []models.AttendanceEntry
	err      error
}

func (f *fakeEntryRepo) ListByRecord(_ context.Context, recordID string) ([]models.AttendanceEntry, error) {
	return f.byRecord[recordID], nil
}

func (f *fakeEntryRepo) ListByStudent(_ context.Context, studentID string) ([]models.AttendanceEntry, error) {
	var out []models.AttendanceEntry
	for _, entries := range f.byRecord {
		for _, entry := range entries {
			if entry.StudentID == studentID {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) BulkUpsert(_ context.Context, entries []models.AttendanceEntry) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = entries
	return nil
}

func (f *fakeEntryRepo) CountByRecord(_ context.Context, recordID string) (int, error) {
	return len(f.byRecord[recordID]), nil
}

type fakeStudents struct {
	byClass map[string][]models.Student
}

func (f *fakeStudents) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	return f.byClass[classID], nil
}

func (f *fakeStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	for _, students := range f.byClass {
		for _, student := range students {
			if student.ID == id {
				s := student
				return &s, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

type fakeNotifier struct {
	published []string
}

func (f *fakeNotifier) Publish(_ context.Context, table, eventType string) {
	f.published = append(f.published, table+":"+eventType)
}

func newAttendanceFixture() (*AttendanceService, *fakeRecordRepo, *fakeEntryRepo, *fakeNotifier) {
	records := &fakeRecordRepo{records: map[string]*models.AttendanceRecord{
		"rec1": {ID: "rec1", ClassID: "class1", CourseName: "Mathematiques", TeacherID: "teacher1", Date: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
	}}
	entries := &fakeEntryRepo{byRecord: map[string][]models.AttendanceEntry{}}
	students := &fakeStudents{byClass: map[string][]models.Student{
		"class1": {
			{ID: "stu1", Name: "Alice Martin", ClassID: "class1"},
			{ID: "stu2", Name: "Bruno Petit", ClassID: "class1"},
		},
	}}
	notifier := &fakeNotifier{}
	svc := NewAttendanceService(records, entries, students, nil, notifier, nil, nil)
	return svc, records, entries, notifier
}

func TestCreateRecordRejectsBadDate(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture()

	_, err := svc.CreateRecord(context.Background(), CreateRecordRequest{
		Date: "12/03/2026", ClassID: "class1", CourseName: "Maths", TeacherID: "teacher1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSaveEntriesResolvesRosterNames(t *testing.T) {
	svc, _, entries, notifier := newAttendanceFixture()

	saved, err := svc.SaveEntries(context.Background(), SaveEntriesRequest{
		RecordID: "rec1",
		Items: []SaveEntryItem{
			{StudentID: "stu1", Status: "present"},
			{StudentID: "stu2", Status: "late"},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Alice Martin", saved[0].StudentName)
	assert.Equal(t, "Bruno Petit", saved[1].StudentName)
	assert.Equal(t, models.EntryStatusLate, saved[1].Status)
	assert.Len(t, entries.upserted, 2)
	assert.Contains(t, notifier.published, "attendance_entries:upsert")
}

func TestSaveEntriesRejectsStudentOutsideClass(t *testing.T) {
	svc, _, entries, _ := newAttendanceFixture()

	_, err := svc.SaveEntries(context.Background(), SaveEntriesRequest{
		RecordID: "rec1",
		Items:    []SaveEntryItem{{StudentID: "intruder", Status: "present"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, entries.upserted)
}

func TestSaveEntriesRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture()

	_, err := svc.SaveEntries(context.Background(), SaveEntriesRequest{
		RecordID: "rec1",
		Items:    []SaveEntryItem{{StudentID: "stu1", Status: "vanished"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetRecordComputesStats(t *testing.T) {
	svc, _, entries, _ := newAttendanceFixture()
	entries.byRecord["rec1"] = []models.AttendanceEntry{
		{RecordID: "rec1", StudentID: "stu1", Status: models.EntryStatusPresent},
		{RecordID: "rec1", StudentID: "stu2", Status: models.EntryStatusPresent},
		{RecordID: "rec1", StudentID: "stu3", Status: models.EntryStatusPresent},
		{RecordID: "rec1", StudentID: "stu4", Status: models.EntryStatusLate},
		{RecordID: "rec1", StudentID: "stu5", Status: models.EntryStatusAbsent},
	}

	detail, err := svc.GetRecord(context.Background(), "rec1")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStats{Total: 5, Present: 3, Absent: 1, Late: 1, Excused: 0}, detail.Stats)
}

func TestGetRecordNotFound(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture()

	_, err := svc.GetRecord(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
