package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

// LiaisonHandler exposes liaison notebook endpoints.
type LiaisonHandler struct {
	liaison *service.LiaisonService
}

// NewLiaisonHandler constructs handler.
func NewLiaisonHandler(liaison *service.LiaisonService) *LiaisonHandler {
	return &LiaisonHandler{liaison: liaison}
}

// Create godoc
// @Summary Post a liaison entry
// @Tags Liaison
// @Accept json
// @Produce json
// @Param payload body service.CreateLiaisonRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Router /liaison [post]
func (h *LiaisonHandler) Create(c *gin.Context) {
	var req service.CreateLiaisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.AuthorID = claims.UserID
	}
	entry, err := h.liaison.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// ListByClass godoc
// @Summary Liaison entries for a class
// @Tags Liaison
// @Produce json
// @Param id path string true "Class id"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/liaison [get]
func (h *LiaisonHandler) ListByClass(c *gin.Context) {
	entries, err := h.liaison.ListByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Sign godoc
// @Summary Acknowledge a liaison entry
// @Tags Liaison
// @Produce json
// @Param id path string true "Entry id"
// @Success 200 {object} response.Envelope
// @Router /liaison/{id}/sign [post]
func (h *LiaisonHandler) Sign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alreadySigned, err := h.liaison.Sign(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"already_signed": alreadySigned}, nil)
}

// Signatures godoc
// @Summary Signatures collected for an entry
// @Tags Liaison
// @Produce json
// @Param id path string true "Entry id"
// @Success 200 {object} response.Envelope
// @Router /liaison/{id}/signatures [get]
func (h *LiaisonHandler) Signatures(c *gin.Context) {
	signatures, err := h.liaison.Signatures(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signatures, nil)
}
