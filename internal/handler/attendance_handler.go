package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/internal/service"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/response"
)

type attendanceService interface {
	DayView(ctx context.Context, ref time.Time, filter models.StudentFilter) ([]models.AttendanceRow, error)
	Scan(ctx context.Context, code string) (*models.ScanResult, error)
	SetPresent(ctx context.Context, studentID string, present bool) (*models.AttendanceRecord, error)
	MarkAllPresent(ctx context.Context, gradeID string) (*models.AttendanceBulkResult, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	metrics    *service.MetricsService
	location   *time.Location
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, metrics *service.MetricsService, loc *time.Location) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{attendance: attendance, metrics: metrics, location: loc}
}

type scanRequest struct {
	Code string `json:"code" binding:"required"`
}

type setPresentRequest struct {
	Present *bool `json:"present" binding:"required"`
}

// Day godoc
// @Summary Get the day's attendance register
// @Description Returns the full roster with present flags, creating absent rows for students without one
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Param gradeId query string false "Filter by grade"
// @Param search query string false "Search by name or code"
// @Success 200 {object} response.Envelope
// @Router /attendance/day [get]
func (h *AttendanceHandler) Day(c *gin.Context) {
	ref := time.Now().In(h.location)
	if raw := c.Query("date"); raw != "" {
		parsed, err := dates.ParseDate(raw, h.location)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		ref = parsed
	}
	filter := models.StudentFilter{
		GradeID: c.Query("gradeId"),
		Search:  strings.TrimSpace(c.Query("search")),
	}

	rows, err := h.attendance.DayView(c.Request.Context(), ref, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Scan godoc
// @Summary Process a card scan
// @Description Mark the student with the scanned code present for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body scanRequest true "Scanned code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	result, err := h.attendance.Scan(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordScan()
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetPresent godoc
// @Summary Correct a student's attendance for today
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body setPresentRequest true "Present flag"
// @Success 200 {object} response.Envelope
// @Router /attendance/day/{studentId} [put]
func (h *AttendanceHandler) SetPresent(c *gin.Context) {
	var req setPresentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	record, err := h.attendance.SetPresent(c.Request.Context(), c.Param("studentId"), *req.Present)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// MarkAll godoc
// @Summary Mark every student present for today
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param gradeId query string false "Limit to one grade"
// @Success 200 {object} response.Envelope
// @Router /attendance/day/mark-all [post]
func (h *AttendanceHandler) MarkAll(c *gin.Context) {
	result, err := h.attendance.MarkAllPresent(c.Request.Context(), c.Query("gradeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
