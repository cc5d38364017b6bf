package models

import "time"

// CurriculumSubject groups the topics taught to a class.
type CurriculumSubject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CurriculumTopic is a single teachable unit within a subject.
type CurriculumTopic struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TopicProgress tracks completion of a topic for a class. One row per
// (topic_id, class_id), upsert enforced.
type TopicProgress struct {
	ID          string     `db:"id" json:"id"`
	TopicID     string     `db:"topic_id" json:"topic_id"`
	ClassID     string     `db:"class_id" json:"class_id"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// SubjectCompletion reports curriculum progress for a subject/class pair.
type SubjectCompletion struct {
	SubjectID       string `json:"subject_id"`
	ClassID         string `json:"class_id"`
	TotalTopics     int    `json:"total_topics"`
	CompletedTopics int    `json:"completed_topics"`
	Percentage      int    `json:"percentage"`
}
