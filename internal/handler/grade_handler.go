package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

// GradeHandler exposes evaluation and grading endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// CreateEvaluation godoc
// @Summary Define a graded assessment
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.CreateEvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *GradeHandler) CreateEvaluation(c *gin.Context) {
	var req service.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.TeacherID == "" {
		req.TeacherID = claims.UserID
	}
	eval, err := h.grades.CreateEvaluation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, eval)
}

// ListEvaluations godoc
// @Summary List assessments
// @Tags Grades
// @Produce json
// @Param classId query string false "Filter by class"
// @Param subject query string false "Filter by subject"
// @Param teacherId query string false "Filter by teacher"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *GradeHandler) ListEvaluations(c *gin.Context) {
	filter := models.EvaluationFilter{
		ClassID:   c.Query("classId"),
		Subject:   c.Query("subject"),
		TeacherID: c.Query("teacherId"),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "pageSize", 50),
	}
	evals, pagination, err := h.grades.ListEvaluations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evals, pagination)
}

// GetEvaluation godoc
// @Summary Assessment with its grades
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation id"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [get]
func (h *GradeHandler) GetEvaluation(c *gin.Context) {
	eval, grades, err := h.grades.GetEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"evaluation": eval, "grades": grades}, nil)
}

// SaveGrades godoc
// @Summary Save grades for an assessment
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Evaluation id"
// @Param payload body service.SaveGradesRequest true "Grades payload"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/grades [put]
func (h *GradeHandler) SaveGrades(c *gin.Context) {
	var req service.SaveGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.EvaluationID = c.Param("id")
	if claims := claimsFromContext(c); claims != nil {
		req.GradedBy = claims.UserID
	}
	grades, err := h.grades.SaveGrades(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// StudentAverage godoc
// @Summary A student's weighted average
// @Tags Grades
// @Produce json
// @Param id path string true "Student id"
// @Param subject query string false "Limit to one subject"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/average [get]
func (h *GradeHandler) StudentAverage(c *gin.Context) {
	average, err := h.grades.StudentAverage(c.Request.Context(), c.Param("id"), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_id": c.Param("id"), "average": average}, nil)
}

// StudentGrades godoc
// @Summary A student's raw grades
// @Tags Grades
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	grades, err := h.grades.StudentGrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ClassSummary godoc
// @Summary Per-student averages and class mean
// @Tags Grades
// @Produce json
// @Param id path string true "Class id"
// @Param subject query string false "Limit to one subject"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grades/summary [get]
func (h *GradeHandler) ClassSummary(c *gin.Context) {
	summary, err := h.grades.ClassSummary(c.Request.Context(), c.Param("id"), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
