package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

func ptrFloat(v float64) *float64 {
	return &v
}

func TestRecordStats(t *testing.T) {
	entries := []models.AttendanceEntry{
		{StudentID: "s1", Status: models.EntryStatusPresent},
		{StudentID: "s2", Status: models.EntryStatusPresent},
		{StudentID: "s3", Status: models.EntryStatusPresent},
		{StudentID: "s4", Status: models.EntryStatusLate},
		{StudentID: "s5", Status: models.EntryStatusAbsent},
	}

	stats := RecordStats(entries)

	assert.Equal(t, models.AttendanceStats{Total: 5, Present: 3, Absent: 1, Late: 1, Excused: 0}, stats)
}

func TestRecordStatsEmpty(t *testing.T) {
	stats := RecordStats(nil)
	assert.Equal(t, models.AttendanceStats{}, stats)
}

func TestStudentAverageWeighted(t *testing.T) {
	// E1(max=20, coef=1, grade=10) and E2(max=10, coef=2, grade=8):
	// (10/20*20*1 + 8/10*20*2) / (1+2) = (10+32)/3 = 14.0
	evals := []models.Evaluation{
		{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1, Date: time.Now()},
		{ID: "e2", Subject: "math", MaxGrade: 10, Coefficient: 2, Date: time.Now()},
	}
	grades := []models.Grade{
		{EvaluationID: "e1", StudentID: "s1", Grade: ptrFloat(10)},
		{EvaluationID: "e2", StudentID: "s1", Grade: ptrFloat(8)},
	}

	avg := StudentAverage(evals, grades, "s1", "", DefaultScale)

	require.NotNil(t, avg)
	assert.InDelta(t, 14.0, *avg, 1e-9)
}

func TestStudentAverageExcludesNilGrades(t *testing.T) {
	evals := []models.Evaluation{
		{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1},
		{ID: "e2", Subject: "math", MaxGrade: 20, Coefficient: 3},
	}
	grades := []models.Grade{
		{EvaluationID: "e1", StudentID: "s1", Grade: ptrFloat(16)},
		{EvaluationID: "e2", StudentID: "s1", Grade: nil},
	}

	avg := StudentAverage(evals, grades, "s1", "", DefaultScale)

	require.NotNil(t, avg)
	assert.InDelta(t, 16.0, *avg, 1e-9)
}

func TestStudentAverageNoGradedEvaluations(t *testing.T) {
	evals := []models.Evaluation{{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1}}
	grades := []models.Grade{{EvaluationID: "e1", StudentID: "s1", Grade: nil}}

	assert.Nil(t, StudentAverage(evals, grades, "s1", "", DefaultScale))
	assert.Nil(t, StudentAverage(nil, nil, "s1", "", DefaultScale))
}

func TestStudentAverageSubjectFilter(t *testing.T) {
	evals := []models.Evaluation{
		{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1},
		{ID: "e2", Subject: "histoire", MaxGrade: 20, Coefficient: 1},
	}
	grades := []models.Grade{
		{EvaluationID: "e1", StudentID: "s1", Grade: ptrFloat(10)},
		{EvaluationID: "e2", StudentID: "s1", Grade: ptrFloat(20)},
	}

	avg := StudentAverage(evals, grades, "s1", "math", DefaultScale)

	require.NotNil(t, avg)
	assert.InDelta(t, 10.0, *avg, 1e-9)
}

func TestClassAverage(t *testing.T) {
	evals := []models.Evaluation{{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1}}
	grades := []models.Grade{
		{EvaluationID: "e1", StudentID: "s1", Grade: ptrFloat(10)},
		{EvaluationID: "e1", StudentID: "s2", Grade: ptrFloat(14)},
		{EvaluationID: "e1", StudentID: "s3", Grade: nil},
	}

	avg := ClassAverage(evals, grades, []string{"s1", "s2", "s3"}, "", DefaultScale)

	require.NotNil(t, avg)
	// s3 has no graded evaluation and must not drag the mean toward zero.
	assert.InDelta(t, 12.0, *avg, 1e-9)
}

func TestClassAverageNoGrades(t *testing.T) {
	evals := []models.Evaluation{{ID: "e1", Subject: "math", MaxGrade: 20, Coefficient: 1}}

	assert.Nil(t, ClassAverage(evals, nil, []string{"s1", "s2"}, "", DefaultScale))
}

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, CompletionPercentage(0, 0))
	assert.Equal(t, 0, CompletionPercentage(3, 0))
	assert.Equal(t, 50, CompletionPercentage(1, 2))
	assert.Equal(t, 67, CompletionPercentage(2, 3))
	assert.Equal(t, 100, CompletionPercentage(7, 7))
}
