package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecolehub/vie-scolaire-api/internal/service"
	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
	"github.com/ecolehub/vie-scolaire-api/pkg/response"
)

// AttendanceHandler exposes roll-call endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CreateRecord godoc
// @Summary Open a roll-call session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/records [post]
func (h *AttendanceHandler) CreateRecord(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.TeacherID == "" {
		req.TeacherID = claims.UserID
	}
	record, err := h.attendance.CreateRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListRecords godoc
// @Summary List roll-call sessions
// @Tags Attendance
// @Produce json
// @Param classId query string false "Filter by class"
// @Param teacherId query string false "Filter by teacher"
// @Param from query string false "Start date YYYY-MM-DD"
// @Param to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance/records [get]
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	req := service.RecordListRequest{
		ClassID:   c.Query("classId"),
		TeacherID: c.Query("teacherId"),
	}
	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			req.DateFrom = &parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			req.DateTo = &parsed
		}
	}
	req.Page = intQuery(c, "page", 1)
	req.PageSize = intQuery(c, "pageSize", 50)

	records, pagination, err := h.attendance.ListRecords(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// GetRecord godoc
// @Summary Roll-call session with entries and stats
// @Tags Attendance
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{id} [get]
func (h *AttendanceHandler) GetRecord(c *gin.Context) {
	detail, err := h.attendance.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// SaveEntries godoc
// @Summary Save per-student marks for a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record id"
// @Param payload body service.SaveEntriesRequest true "Entries payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{id}/entries [put]
func (h *AttendanceHandler) SaveEntries(c *gin.Context) {
	var req service.SaveEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RecordID = c.Param("id")
	entries, err := h.attendance.SaveEntries(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Stats godoc
// @Summary Per-status counts for a session
// @Tags Attendance
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{id}/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	stats, err := h.attendance.StatsForRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// UpdateNotes godoc
// @Summary Update session notes
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{id}/notes [patch]
func (h *AttendanceHandler) UpdateNotes(c *gin.Context) {
	var req struct {
		Notes *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteRecord godoc
// @Summary Delete a session and its entries
// @Tags Attendance
// @Param id path string true "Record id"
// @Success 204
// @Router /attendance/records/{id} [delete]
func (h *AttendanceHandler) DeleteRecord(c *gin.Context) {
	if err := h.attendance.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentHistory godoc
// @Summary A student's attendance entries
// @Tags Attendance
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	entries, err := h.attendance.StudentEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
