// Package aggregate holds the pure derived-state computations for attendance
// and grading. Functions here take in-memory snapshots and perform no I/O;
// callers fetch fresh rows and recompute on demand.
package aggregate

import (
	"math"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
)

// DefaultScale is the fixed scale averages are normalised to, regardless of
// each evaluation's own max grade.
const DefaultScale = 20.0

// RecordStats counts entries per status. Total is the entry count, not the
// roster size: students never marked simply do not appear.
func RecordStats(entries []models.AttendanceEntry) models.AttendanceStats {
	stats := models.AttendanceStats{}
	for _, entry := range entries {
		switch entry.Status {
		case models.EntryStatusPresent:
			stats.Present++
		case models.EntryStatusAbsent:
			stats.Absent++
		case models.EntryStatusLate:
			stats.Late++
		case models.EntryStatusExcused:
			stats.Excused++
		}
		stats.Total++
	}
	return stats
}

// StudentAverage computes the coefficient-weighted average for a student,
// rescaled to the given scale: Σ(grade/maxGrade × scale × coef) / Σ(coef).
// Evaluations without a grade for the student, or with a nil grade, are
// excluded entirely. Returns nil when no coefficient accumulated, never 0
// or NaN.
func StudentAverage(evals []models.Evaluation, grades []models.Grade, studentID, subject string, scale float64) *float64 {
	if scale <= 0 {
		scale = DefaultScale
	}
	byEval := make(map[string]models.Evaluation, len(evals))
	for _, eval := range evals {
		if subject != "" && eval.Subject != subject {
			continue
		}
		byEval[eval.ID] = eval
	}

	var sum, totalCoef float64
	for _, grade := range grades {
		if grade.StudentID != studentID || grade.Grade == nil {
			continue
		}
		eval, ok := byEval[grade.EvaluationID]
		if !ok || eval.MaxGrade <= 0 || eval.Coefficient <= 0 {
			continue
		}
		sum += *grade.Grade / eval.MaxGrade * scale * eval.Coefficient
		totalCoef += eval.Coefficient
	}
	if totalCoef == 0 {
		return nil
	}
	avg := sum / totalCoef
	return &avg
}

// ClassAverage is the arithmetic mean of StudentAverage across the given
// students, skipping students without any graded evaluation. Returns nil
// when no student has a grade.
func ClassAverage(evals []models.Evaluation, grades []models.Grade, studentIDs []string, subject string, scale float64) *float64 {
	var sum float64
	var count int
	for _, studentID := range studentIDs {
		avg := StudentAverage(evals, grades, studentID, subject, scale)
		if avg == nil {
			continue
		}
		sum += *avg
		count++
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

// CompletionPercentage is round(100 × completed / total), with 0 when the
// subject has no topics.
func CompletionPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
