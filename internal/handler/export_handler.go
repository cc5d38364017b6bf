package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/service"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

// ExportHandler serves file exports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// AttendanceSheet godoc
// @Summary Export a roll-call session as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Record id"
// @Success 200 {file} binary
// @Router /exports/attendance/{id} [get]
func (h *ExportHandler) AttendanceSheet(c *gin.Context) {
	payload, filename, err := h.exports.AttendanceSheetCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ReportCard godoc
// @Summary Export a student's report card as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Student id"
// @Success 200 {file} binary
// @Router /exports/report-card/{id} [get]
func (h *ExportHandler) ReportCard(c *gin.Context) {
	payload, filename, err := h.exports.ReportCardPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}
