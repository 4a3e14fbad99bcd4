package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/response"
)

type reportService interface {
	Monthly(ctx context.Context, month, year int) (*models.MonthlyRegister, error)
	MonthlyCSV(ctx context.Context, month, year int) ([]byte, error)
	MonthlyPDF(ctx context.Context, month, year int) ([]byte, error)
	Overview(ctx context.Context, from, to time.Time) (*models.OverviewReport, error)
}

// ReportHandler exposes the monthly register and the overview report.
type ReportHandler struct {
	reports  reportService
	location *time.Location
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, location: loc}
}

// MonthlyRegister godoc
// @Summary Monthly attendance register
// @Description One row per student with an X for each present day, plus present/absent totals
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Param format query string false "json, csv or pdf" default(json)
// @Success 200 {object} response.Envelope
// @Router /reports/monthly-register [get]
func (h *ReportHandler) MonthlyRegister(c *gin.Context) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be an integer"))
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be an integer"))
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		register, err := h.reports.Monthly(c.Request.Context(), month, year)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, register, nil)
	case "csv":
		payload, err := h.reports.MonthlyCSV(c.Request.Context(), month, year)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Blob(c, "text/csv", fmt.Sprintf("attendance-%04d-%02d.csv", year, month), payload)
	case "pdf":
		payload, err := h.reports.MonthlyPDF(c.Request.Context(), month, year)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Blob(c, "application/pdf", fmt.Sprintf("attendance-%04d-%02d.pdf", year, month), payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
	}
}

// Overview godoc
// @Summary Attendance and invoice overview for a date range
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string true "Start day (YYYY-MM-DD), inclusive"
// @Param to query string true "End day (YYYY-MM-DD), inclusive"
// @Success 200 {object} response.Envelope
// @Router /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	from, err := dates.ParseDate(c.Query("from"), h.location)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := dates.ParseDate(c.Query("to"), h.location)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	if to.Before(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not be before from"))
		return
	}

	report, err := h.reports.Overview(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
