package models

import "time"

// EntryStatus represents the per-student mark inside an attendance record.
type EntryStatus string

const (
	EntryStatusPresent EntryStatus = "present"
	EntryStatusAbsent  EntryStatus = "absent"
	EntryStatusLate    EntryStatus = "late"
	EntryStatusExcused EntryStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusPresent, EntryStatusAbsent, EntryStatusLate, EntryStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one roll-call session for a class/course. Immutable
// once entries exist, except for notes.
type AttendanceRecord struct {
	ID         string    `db:"id" json:"id"`
	Date       time.Time `db:"date" json:"date"`
	ClassID    string    `db:"class_id" json:"class_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceEntry is the per-student child row under a record. Exactly one
// entry exists per (record_id, student_id); writes go through an upsert
// keyed on that pair.
type AttendanceEntry struct {
	ID                      string      `db:"id" json:"id"`
	RecordID                string      `db:"record_id" json:"record_id"`
	StudentID               string      `db:"student_id" json:"student_id"`
	StudentName             string      `db:"student_name" json:"student_name"`
	Status                  EntryStatus `db:"status" json:"status"`
	ArrivalTime             *string     `db:"arrival_time" json:"arrival_time,omitempty"`
	Justification           *string     `db:"justification" json:"justification,omitempty"`
	JustificationProvidedAt *time.Time  `db:"justification_provided_at" json:"justification_provided_at,omitempty"`
	Notes                   *string     `db:"notes" json:"notes,omitempty"`
	CreatedAt               time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time   `db:"updated_at" json:"updated_at"`
}

// AttendanceStats summarises entry counts for a record. Total is the number
// of entries, not the roster size.
type AttendanceStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

// AttendanceRecordFilter scopes record listings.
type AttendanceRecordFilter struct {
	ClassID   string
	TeacherID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// RecordDetail bundles a record with its entries and derived stats.
type RecordDetail struct {
	Record  AttendanceRecord  `json:"record"`
	Entries []AttendanceEntry `json:"entries"`
	Stats   AttendanceStats   `json:"stats"`
}
