package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

// CurriculumHandler exposes curriculum tracking endpoints.
type CurriculumHandler struct {
	curriculum *service.CurriculumService
}

// NewCurriculumHandler constructs handler.
func NewCurriculumHandler(curriculum *service.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

// Subjects godoc
// @Summary Subjects taught to a class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class id"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [get]
func (h *CurriculumHandler) Subjects(c *gin.Context) {
	subjects, err := h.curriculum.Subjects(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Topics godoc
// @Summary Topics within a subject
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject id"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/topics [get]
func (h *CurriculumHandler) Topics(c *gin.Context) {
	topics, err := h.curriculum.Topics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}

// Completion godoc
// @Summary Completion percentage for a subject and class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Subject id"
// @Param classId query string true "Class id"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/completion [get]
func (h *CurriculumHandler) Completion(c *gin.Context) {
	completion, err := h.curriculum.Completion(c.Request.Context(), c.Param("id"), c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, completion, nil)
}

// SetProgress godoc
// @Summary Mark a topic done or not done for a class
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body service.SetProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /curriculum/progress [put]
func (h *CurriculumHandler) SetProgress(c *gin.Context) {
	var req service.SetProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	progress, err := h.curriculum.SetProgress(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
