package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/aggregate"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

const summaryCacheTTL = 10 * time.Minute

type evaluationRepository interface {
	Create(ctx context.Context, eval *models.Evaluation) error
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error)
	ListByClass(ctx context.Context, classID, subject string) ([]models.Evaluation, error)
}

type gradeRepository interface {
	ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error)
	ListByClass(ctx context.Context, classID, subject string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	BulkUpsert(ctx context.Context, grades []models.Grade) error
}

// GradeService manages evaluations, per-student grades and the derived
// averages. Averages are always recomputed from a fresh snapshot of the
// evaluation and grade rows; nothing incremental is kept in memory.
type GradeService struct {
	evaluations evaluationRepository
	grades      gradeRepository
	students    studentReader
	cache       aggregateCache
	notifier    changeNotifier
	validator   *validator.Validate
	logger      *zap.Logger

	scale        float64
	enforceRange bool
}

// NewGradeService constructs the grade service. scale is the fixed scale
// averages are reported on; enforceRange rejects out-of-range raw grades.
func NewGradeService(evaluations evaluationRepository, grades gradeRepository, students studentReader, cache aggregateCache, notifier changeNotifier, validate *validator.Validate, logger *zap.Logger, scale float64, enforceRange bool) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scale <= 0 {
		scale = aggregate.DefaultScale
	}
	return &GradeService{
		evaluations:  evaluations,
		grades:       grades,
		students:     students,
		cache:        cache,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
		scale:        scale,
		enforceRange: enforceRange,
	}
}

// CreateEvaluationRequest is the payload for defining an assessment.
type CreateEvaluationRequest struct {
	Title       string  `json:"title" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	EvalType    string  `json:"eval_type" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	MaxGrade    float64 `json:"max_grade" validate:"required,gt=0"`
	Coefficient float64 `json:"coefficient" validate:"required,gt=0"`
	ClassID     string  `json:"class_id" validate:"required"`
	TeacherID   string  `json:"teacher_id" validate:"required"`
}

// GradeItem is one per-student grade within a batch.
type GradeItem struct {
	StudentID string   `json:"student_id" validate:"required"`
	Grade     *float64 `json:"grade"`
	Comment   *string  `json:"comment"`
}

// SaveGradesRequest is the batch payload for an evaluation.
type SaveGradesRequest struct {
	EvaluationID string      `json:"evaluation_id" validate:"required"`
	GradedBy     string      `json:"-"`
	Items        []GradeItem `json:"items" validate:"required,min=1,dive"`
}

// CreateEvaluation defines a new assessment.
func (s *GradeService) CreateEvaluation(ctx context.Context, req CreateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "max grade and coefficient must be positive")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	eval := &models.Evaluation{
		Title:       req.Title,
		Subject:     req.Subject,
		EvalType:    req.EvalType,
		Date:        date,
		MaxGrade:    req.MaxGrade,
		Coefficient: req.Coefficient,
		ClassID:     req.ClassID,
		TeacherID:   req.TeacherID,
	}
	if err := s.evaluations.Create(ctx, eval); err != nil {
		s.logger.Error("create evaluation failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create evaluation")
	}
	s.publish(ctx, "evaluations", "insert")
	return eval, nil
}

// GetEvaluation returns an evaluation with its grades.
func (s *GradeService) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, []models.Grade, error) {
	eval, err := s.evaluations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load evaluation")
	}
	grades, err := s.grades.ListByEvaluation(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load grades")
	}
	return eval, grades, nil
}

// ListEvaluations returns paginated evaluations.
func (s *GradeService) ListEvaluations(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	rows, total, err := s.evaluations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to list evaluations")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// SaveGrades upserts a batch of grades under one evaluation. A nil grade is a
// valid "not yet graded" marker. A second save for the same students replaces
// the stored rows.
func (s *GradeService) SaveGrades(ctx context.Context, req SaveGradesRequest) ([]models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	eval, err := s.evaluations.FindByID(ctx, req.EvaluationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load evaluation")
	}

	now := time.Now().UTC()
	grades := make([]models.Grade, len(req.Items))
	for i, item := range req.Items {
		if s.enforceRange && item.Grade != nil && (*item.Grade < 0 || *item.Grade > eval.MaxGrade) {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("grade %.2f for student %s is outside [0, %.2f]", *item.Grade, item.StudentID, eval.MaxGrade))
		}
		grade := models.Grade{
			EvaluationID: req.EvaluationID,
			StudentID:    item.StudentID,
			Grade:        item.Grade,
			Comment:      item.Comment,
		}
		if item.Grade != nil {
			gradedBy := req.GradedBy
			gradedAt := now
			grade.GradedBy = &gradedBy
			grade.GradedAt = &gradedAt
		}
		grades[i] = grade
	}

	if err := s.grades.BulkUpsert(ctx, grades); err != nil {
		s.logger.Error("save grades failed", zap.String("evaluation_id", req.EvaluationID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to save grades")
	}
	s.publish(ctx, "grades", "upsert")
	return grades, nil
}

// StudentAverage computes one student's weighted average across their class
// evaluations, optionally limited to a subject. Returns nil when the student
// has no graded evaluation.
func (s *GradeService) StudentAverage(ctx context.Context, studentID, subject string) (*float64, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load student")
	}
	evals, grades, err := s.classSnapshot(ctx, student.ClassID, subject)
	if err != nil {
		return nil, err
	}
	return aggregate.StudentAverage(evals, grades, studentID, subject, s.scale), nil
}

// ClassSummary computes per-student averages and the class mean for a class,
// optionally limited to a subject. The result is cached until the bridge
// observes a relevant row change.
func (s *GradeService) ClassSummary(ctx context.Context, classID, subject string) (*models.ClassGradeSummary, error) {
	cacheKey := "grades:summary:" + classID + ":" + subject
	if s.cache != nil {
		var cached models.ClassGradeSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load class roster")
	}
	evals, grades, err := s.classSnapshot(ctx, classID, subject)
	if err != nil {
		return nil, err
	}

	summary := &models.ClassGradeSummary{ClassID: classID, Subject: subject}
	studentIDs := make([]string, len(roster))
	summary.Students = make([]models.StudentAverageRow, len(roster))
	for i, student := range roster {
		studentIDs[i] = student.ID
		summary.Students[i] = models.StudentAverageRow{
			StudentID:   student.ID,
			StudentName: student.Name,
			Average:     aggregate.StudentAverage(evals, grades, student.ID, subject, s.scale),
		}
	}
	summary.ClassAverage = aggregate.ClassAverage(evals, grades, studentIDs, subject, s.scale)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
			s.logger.Warn("failed to cache class summary", zap.Error(err))
		}
	}
	return summary, nil
}

// StudentGrades returns a student's raw grade rows across evaluations.
func (s *GradeService) StudentGrades(ctx context.Context, studentID string) ([]models.Grade, error) {
	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load student grades")
	}
	return grades, nil
}

func (s *GradeService) classSnapshot(ctx context.Context, classID, subject string) ([]models.Evaluation, []models.Grade, error) {
	evals, err := s.evaluations.ListByClass(ctx, classID, subject)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load class evaluations")
	}
	grades, err := s.grades.ListByClass(ctx, classID, subject)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load class grades")
	}
	return evals, grades, nil
}

func (s *GradeService) publish(ctx context.Context, table, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, table, eventType)
}
