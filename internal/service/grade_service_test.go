package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type fakeEvaluationRepo struct {
	byID    map[string]*models.Evaluation
	byClass map[string][]models.Evaluation
}

func (f *fakeEvaluationRepo) Create(_ context.Context, eval *models.Evaluation) error {
	eval.ID = "eval-new"
	f.byID[eval.ID] = eval
	return nil
}

func (f *fakeEvaluationRepo) FindByID(_ context.Context, id string) (*models.Evaluation, error) {
	eval, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return eval, nil
}

func (f *fakeEvaluationRepo) List(_ context.Context, _ models.EvaluationFilter) ([]models.Evaluation, int, error) {
	var out []models.Evaluation
	for _, eval := range f.byID {
		out = append(out, *eval)
	}
	return out, len(out), nil
}

func (f *fakeEvaluationRepo) ListByClass(_ context.Context, classID, subject string) ([]models.Evaluation, error) {
	var out []models.Evaluation
	for _, eval := range f.byClass[classID] {
		if subject != "" && eval.Subject != subject {
			continue
		}
		out = append(out, eval)
	}
	return out, nil
}

type fakeGradeRepo struct {
	byClass  map[string][]models.Grade
	upserted []models.Grade
}

func (f *fakeGradeRepo) ListByEvaluation(_ context.Context, evaluationID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, grades := range f.byClass {
		for _, grade := range grades {
			if grade.EvaluationID == evaluationID {
				out = append(out, grade)
			}
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) ListByClass(_ context.Context, classID, _ string) ([]models.Grade, error) {
	return f.byClass[classID], nil
}

func (f *fakeGradeRepo) ListByStudent(_ context.Context, studentID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, grades := range f.byClass {
		for _, grade := range grades {
			if grade.StudentID == studentID {
				out = append(out, grade)
			}
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) BulkUpsert(_ context.Context, grades []models.Grade) error {
	f.upserted = grades
	return nil
}

func ptr(v float64) *float64 { return &v }

func newGradeFixture(enforceRange bool) (*GradeService, *fakeEvaluationRepo, *fakeGradeRepo) {
	evals := &fakeEvaluationRepo{
		byID: map[string]*models.Evaluation{
			"eval1": {ID: "eval1", Subject: "maths", MaxGrade: 20, Coefficient: 1, ClassID: "class1"},
			"eval2": {ID: "eval2", Subject: "maths", MaxGrade: 10, Coefficient: 2, ClassID: "class1"},
		},
		byClass: map[string][]models.Evaluation{
			"class1": {
				{ID: "eval1", Subject: "maths", MaxGrade: 20, Coefficient: 1, ClassID: "class1"},
				{ID: "eval2", Subject: "maths", MaxGrade: 10, Coefficient: 2, ClassID: "class1"},
			},
		},
	}
	grades := &fakeGradeRepo{byClass: map[string][]models.Grade{}}
	students := &fakeStudents{byClass: map[string][]models.Student{
		"class1": {
			{ID: "stu1", Name: "Alice Martin", ClassID: "class1"},
			{ID: "stu2", Name: "Bruno Petit", ClassID: "class1"},
		},
	}}
	svc := NewGradeService(evals, grades, students, nil, &fakeNotifier{}, nil, nil, 20, enforceRange)
	return svc, evals, grades
}

func TestCreateEvaluationRejectsNonPositiveMaxGrade(t *testing.T) {
	svc, _, _ := newGradeFixture(false)

	_, err := svc.CreateEvaluation(context.Background(), CreateEvaluationRequest{
		Title: "Controle", Subject: "maths", EvalType: "controle", Date: "2026-03-12",
		MaxGrade: 0, Coefficient: 1, ClassID: "class1", TeacherID: "teacher1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSaveGradesStampsGraderOnlyForGradedRows(t *testing.T) {
	svc, _, grades := newGradeFixture(false)

	saved, err := svc.SaveGrades(context.Background(), SaveGradesRequest{
		EvaluationID: "eval1",
		GradedBy:     "teacher1",
		Items: []GradeItem{
			{StudentID: "stu1", Grade: ptr(15.5)},
			{StudentID: "stu2", Grade: nil},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.NotNil(t, saved[0].GradedBy)
	assert.Equal(t, "teacher1", *saved[0].GradedBy)
	assert.NotNil(t, saved[0].GradedAt)
	assert.Nil(t, saved[1].GradedBy)
	assert.Nil(t, saved[1].GradedAt)
	assert.Len(t, grades.upserted, 2)
}

func TestSaveGradesRangeEnforcement(t *testing.T) {
	svc, _, _ := newGradeFixture(true)

	_, err := svc.SaveGrades(context.Background(), SaveGradesRequest{
		EvaluationID: "eval1",
		Items:        []GradeItem{{StudentID: "stu1", Grade: ptr(25)}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Permissive mode accepts the same value.
	permissive, _, _ := newGradeFixture(false)
	_, err = permissive.SaveGrades(context.Background(), SaveGradesRequest{
		EvaluationID: "eval1",
		Items:        []GradeItem{{StudentID: "stu1", Grade: ptr(25)}},
	})
	require.NoError(t, err)
}

func TestStudentAverageIsWeightedAndRescaled(t *testing.T) {
	svc, _, grades := newGradeFixture(false)
	grades.byClass["class1"] = []models.Grade{
		{EvaluationID: "eval1", StudentID: "stu1", Grade: ptr(10)},
		{EvaluationID: "eval2", StudentID: "stu1", Grade: ptr(8)},
	}

	avg, err := svc.StudentAverage(context.Background(), "stu1", "maths")
	require.NoError(t, err)
	require.NotNil(t, avg)
	// (10/20*20*1 + 8/10*20*2) / 3 = 14
	assert.InDelta(t, 14.0, *avg, 1e-9)
}

func TestStudentAverageNilWhenUngraded(t *testing.T) {
	svc, _, grades := newGradeFixture(false)
	grades.byClass["class1"] = []models.Grade{
		{EvaluationID: "eval1", StudentID: "stu1", Grade: nil},
	}

	avg, err := svc.StudentAverage(context.Background(), "stu1", "maths")
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestClassSummarySkipsUngradedStudents(t *testing.T) {
	svc, _, grades := newGradeFixture(false)
	grades.byClass["class1"] = []models.Grade{
		{EvaluationID: "eval1", StudentID: "stu1", Grade: ptr(12)},
		{EvaluationID: "eval1", StudentID: "stu2", Grade: nil},
	}

	summary, err := svc.ClassSummary(context.Background(), "class1", "maths")
	require.NoError(t, err)
	require.Len(t, summary.Students, 2)
	require.NotNil(t, summary.Students[0].Average)
	assert.InDelta(t, 12.0, *summary.Students[0].Average, 1e-9)
	assert.Nil(t, summary.Students[1].Average)
	// Class mean counts only the graded student.
	require.NotNil(t, summary.ClassAverage)
	assert.InDelta(t, 12.0, *summary.ClassAverage, 1e-9)
}
