package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/aggregate"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

const statsCacheTTL = 5 * time.Minute

type attendanceRecordRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, int, error)
	UpdateNotes(ctx context.Context, id string, notes *string) error
	Delete(ctx context.Context, id string) error
}

type attendanceEntryRepository interface {
	ListByRecord(ctx context.Context, recordID string) ([]models.AttendanceEntry, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceEntry, error)
	BulkUpsert(ctx context.Context, entries []models.AttendanceEntry) error
	CountByRecord(ctx context.Context, recordID string) (int, error)
}

type studentReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// changeNotifier publishes row-change signals after successful writes. The
// bridge treats our own echo like any external change.
type changeNotifier interface {
	Publish(ctx context.Context, table, eventType string)
}

// aggregateCache stores derived aggregates; a nil implementation is valid.
type aggregateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AttendanceService coordinates roll-call sessions and their entries.
type AttendanceService struct {
	records   attendanceRecordRepository
	entries   attendanceEntryRepository
	students  studentReader
	cache     aggregateCache
	notifier  changeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(records attendanceRecordRepository, entries attendanceEntryRepository, students studentReader, cache aggregateCache, notifier changeNotifier, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{records: records, entries: entries, students: students, cache: cache, notifier: notifier, validator: validate, logger: logger}
	svc.validator.RegisterValidation("entry_status", func(fl validator.FieldLevel) bool {
		return models.EntryStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// CreateRecordRequest describes the payload for opening a roll-call session.
type CreateRecordRequest struct {
	Date       string  `json:"date" validate:"required"`
	ClassID    string  `json:"class_id" validate:"required"`
	CourseName string  `json:"course_name" validate:"required"`
	TeacherID  string  `json:"teacher_id" validate:"required"`
	Notes      *string `json:"notes"`
}

// SaveEntryItem is one per-student mark within a batch.
type SaveEntryItem struct {
	StudentID   string  `json:"student_id" validate:"required"`
	Status      string  `json:"status" validate:"required,entry_status"`
	ArrivalTime *string `json:"arrival_time"`
	Notes       *string `json:"notes"`
}

// SaveEntriesRequest is the batch payload for a record.
type SaveEntriesRequest struct {
	RecordID string          `json:"record_id" validate:"required"`
	Items    []SaveEntryItem `json:"items" validate:"required,min=1,dive"`
}

// RecordListRequest filters record listings.
type RecordListRequest struct {
	ClassID   string     `json:"class_id"`
	TeacherID string     `json:"teacher_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

// CreateRecord opens a new roll-call session.
func (s *AttendanceService) CreateRecord(ctx context.Context, req CreateRecordRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date and class are required")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	record := &models.AttendanceRecord{
		Date:       date,
		ClassID:    req.ClassID,
		CourseName: req.CourseName,
		TeacherID:  req.TeacherID,
		Notes:      req.Notes,
	}
	if err := s.records.Create(ctx, record); err != nil {
		s.logger.Error("create attendance record failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create attendance record")
	}
	s.publish(ctx, "attendance_records", "insert")
	return record, nil
}

// SaveEntries upserts a batch of per-student marks. Student names are
// resolved from the roster before the batch is written, sequentially, so the
// whole batch sees one roster snapshot. A second save for the same
// (record, student) pairs replaces the stored rows.
func (s *AttendanceService) SaveEntries(ctx context.Context, req SaveEntriesRequest) ([]models.AttendanceEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entries payload")
	}
	record, err := s.records.FindByID(ctx, req.RecordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance record")
	}

	roster, err := s.students.ListByClass(ctx, record.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load class roster")
	}
	names := make(map[string]string, len(roster))
	for _, student := range roster {
		names[student.ID] = student.Name
	}

	entries := make([]models.AttendanceEntry, len(req.Items))
	for i, item := range req.Items {
		name, ok := names[item.StudentID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in class %s", item.StudentID, record.ClassID))
		}
		entries[i] = models.AttendanceEntry{
			RecordID:    req.RecordID,
			StudentID:   item.StudentID,
			StudentName: name,
			Status:      models.EntryStatus(strings.ToLower(item.Status)),
			ArrivalTime: item.ArrivalTime,
			Notes:       item.Notes,
		}
	}

	if err := s.entries.BulkUpsert(ctx, entries); err != nil {
		s.logger.Error("save attendance entries failed", zap.String("record_id", req.RecordID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to save attendance entries")
	}
	s.publish(ctx, "attendance_entries", "upsert")
	return entries, nil
}

// GetRecord returns a record with its entries and derived stats.
func (s *AttendanceService) GetRecord(ctx context.Context, recordID string) (*models.RecordDetail, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance record")
	}
	entries, err := s.entries.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance entries")
	}
	return &models.RecordDetail{
		Record:  *record,
		Entries: entries,
		Stats:   aggregate.RecordStats(entries),
	}, nil
}

// ListRecords returns paginated roll-call sessions.
func (s *AttendanceService) ListRecords(ctx context.Context, req RecordListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.AttendanceRecordFilter{
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      page,
		PageSize:  size,
	}
	rows, total, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list attendance records")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// StatsForRecord computes per-status counts for a record from a fresh entry
// snapshot, consulting the aggregate cache first.
func (s *AttendanceService) StatsForRecord(ctx context.Context, recordID string) (*models.AttendanceStats, error) {
	cacheKey := "attendance:stats:" + recordID
	if s.cache != nil {
		var cached models.AttendanceStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}
	entries, err := s.entries.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance entries")
	}
	stats := aggregate.RecordStats(entries)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance stats", zap.Error(err))
		}
	}
	return &stats, nil
}

// StudentEntries returns a student's attendance history across records.
func (s *AttendanceService) StudentEntries(ctx context.Context, studentID string) ([]models.AttendanceEntry, error) {
	entries, err := s.entries.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load student attendance")
	}
	return entries, nil
}

// UpdateNotes mutates the only field a record allows once entries exist.
func (s *AttendanceService) UpdateNotes(ctx context.Context, recordID string, notes *string) error {
	if _, err := s.records.FindByID(ctx, recordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance record")
	}
	if err := s.records.UpdateNotes(ctx, recordID, notes); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to update record notes")
	}
	s.publish(ctx, "attendance_records", "update")
	return nil
}

// DeleteRecord removes a record and its entries.
func (s *AttendanceService) DeleteRecord(ctx context.Context, recordID string) error {
	if err := s.records.Delete(ctx, recordID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to delete attendance record")
	}
	s.publish(ctx, "attendance_records", "delete")
	return nil
}

func (s *AttendanceService) publish(ctx context.Context, table, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, table, eventType)
}
