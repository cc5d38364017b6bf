package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/ecolehub/vie-scolaire-api/internal/aggregate"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/export"
)

// ExportService renders attendance sheets and report cards as files.
type ExportService struct {
	attendance *AttendanceService
	grades     *GradeService
	students   studentReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	schoolName string
	logger     *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(attendance *AttendanceService, grades *GradeService, students studentReader, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		grades:     grades,
		students:   students,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		schoolName: schoolName,
		logger:     logger,
	}
}

// AttendanceSheetCSV exports one record's entries and stats as CSV.
func (s *ExportService) AttendanceSheetCSV(ctx context.Context, recordID string) ([]byte, string, error) {
	detail, err := s.attendance.GetRecord(ctx, recordID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Eleve", "Statut", "Arrivee", "Justification", "Notes"},
		Rows:    make([]map[string]string, 0, len(detail.Entries)),
	}
	for _, entry := range detail.Entries {
		row := map[string]string{
			"Eleve":  entry.StudentName,
			"Statut": string(entry.Status),
		}
		if entry.ArrivalTime != nil {
			row["Arrivee"] = *entry.ArrivalTime
		}
		if entry.Justification != nil {
			row["Justification"] = *entry.Justification
		}
		if entry.Notes != nil {
			row["Notes"] = *entry.Notes
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		s.logger.Error("render attendance csv failed", zap.String("record_id", recordID), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance sheet")
	}
	filename := fmt.Sprintf("appel_%s_%s.csv", detail.Record.ClassID, detail.Record.Date.Format("2006-01-02"))
	return payload, filename, nil
}

// ReportCardPDF exports a student's grades and averages as a PDF report card.
func (s *ExportService) ReportCardPDF(ctx context.Context, studentID string) ([]byte, string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	evals, grades, err := s.grades.classSnapshot(ctx, student.ClassID, "")
	if err != nil {
		return nil, "", err
	}

	dataset := reportCardDataset(studentID, evals, grades, s.grades.scale)
	title := fmt.Sprintf("%s - Bulletin de %s", s.schoolName, student.Name)
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		s.logger.Error("render report card failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	filename := fmt.Sprintf("bulletin_%s.pdf", studentID)
	return payload, filename, nil
}

// reportCardDataset lists one student's grades followed by one average row per
// subject, subjects in alphabetical order so repeated exports render the same.
func reportCardDataset(studentID string, evals []models.Evaluation, grades []models.Grade, scale float64) export.Dataset {
	byEval := make(map[string]models.Evaluation, len(evals))
	seen := make(map[string]bool)
	subjects := make([]string, 0, len(evals))
	for _, eval := range evals {
		byEval[eval.ID] = eval
		if !seen[eval.Subject] {
			seen[eval.Subject] = true
			subjects = append(subjects, eval.Subject)
		}
	}
	sort.Strings(subjects)

	dataset := export.Dataset{
		Headers: []string{"Matiere", "Evaluation", "Note", "Bareme", "Coefficient"},
	}
	for _, grade := range grades {
		if grade.StudentID != studentID {
			continue
		}
		eval, ok := byEval[grade.EvaluationID]
		if !ok {
			continue
		}
		noteValue := "-"
		if grade.Grade != nil {
			noteValue = strconv.FormatFloat(*grade.Grade, 'f', 2, 64)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matiere":     eval.Subject,
			"Evaluation":  eval.Title,
			"Note":        noteValue,
			"Bareme":      strconv.FormatFloat(eval.MaxGrade, 'f', 0, 64),
			"Coefficient": strconv.FormatFloat(eval.Coefficient, 'f', 1, 64),
		})
	}
	for _, subject := range subjects {
		avg := aggregate.StudentAverage(evals, grades, studentID, subject, scale)
		avgValue := "-"
		if avg != nil {
			avgValue = strconv.FormatFloat(*avg, 'f', 2, 64)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matiere":    subject,
			"Evaluation": "Moyenne",
			"Note":       avgValue,
		})
	}
	return dataset
}
