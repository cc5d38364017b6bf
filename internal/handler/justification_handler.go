package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/models"
	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

type justificationService interface {
	Submit(ctx context.Context, req service.SubmitJustificationRequest) (*models.Justification, error)
	Review(ctx context.Context, id string, req service.ReviewRequest) (*models.Justification, error)
	RetryExcusal(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Justification, error)
	List(ctx context.Context, filter models.JustificationFilter) ([]models.Justification, error)
}

// JustificationHandler exposes justification workflow endpoints.
type JustificationHandler struct {
	justifications justificationService
}

// NewJustificationHandler constructs handler.
func NewJustificationHandler(justifications justificationService) *JustificationHandler {
	return &JustificationHandler{justifications: justifications}
}

// Submit godoc
// @Summary File a justification for an attendance entry
// @Tags Justifications
// @Accept json
// @Produce json
// @Param payload body service.SubmitJustificationRequest true "Justification payload"
// @Success 201 {object} response.Envelope
// @Router /justifications [post]
func (h *JustificationHandler) Submit(c *gin.Context) {
	var req service.SubmitJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleParent {
		req.ParentID = &claims.UserID
	}
	justification, err := h.justifications.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, justification)
}

// List godoc
// @Summary List justifications
// @Tags Justifications
// @Produce json
// @Param entryId query string false "Filter by attendance entry"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /justifications [get]
func (h *JustificationHandler) List(c *gin.Context) {
	filter := models.JustificationFilter{
		EntryID:   c.Query("entryId"),
		StudentID: c.Query("studentId"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.JustificationStatus(raw)
		filter.Status = &status
	}
	list, err := h.justifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Get godoc
// @Summary Justification detail
// @Tags Justifications
// @Produce json
// @Param id path string true "Justification id"
// @Success 200 {object} response.Envelope
// @Router /justifications/{id} [get]
func (h *JustificationHandler) Get(c *gin.Context) {
	justification, err := h.justifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, justification, nil)
}

// Review godoc
// @Summary Approve or reject a pending justification
// @Tags Justifications
// @Accept json
// @Produce json
// @Param id path string true "Justification id"
// @Param payload body service.ReviewRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /justifications/{id}/review [post]
func (h *JustificationHandler) Review(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.ReviewerID = claims.UserID
	}
	justification, err := h.justifications.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, justification, nil)
}

// RetryExcusal godoc
// @Summary Re-run the entry update for an approved justification
// @Tags Justifications
// @Produce json
// @Param id path string true "Justification id"
// @Success 204
// @Router /justifications/{id}/excusal [post]
func (h *JustificationHandler) RetryExcusal(c *gin.Context) {
	if err := h.justifications.RetryExcusal(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
