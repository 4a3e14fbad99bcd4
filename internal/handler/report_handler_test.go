package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

type reportServiceMock struct {
	register    *models.MonthlyRegister
	registerErr error
	csv         []byte
	csvErr      error
	pdf         []byte
	pdfErr      error
	overview    *models.OverviewReport
	overviewErr error

	lastFrom time.Time
	lastTo   time.Time
}

func (m *reportServiceMock) Monthly(ctx context.Context, month, year int) (*models.MonthlyRegister, error) {
	return m.register, m.registerErr
}

func (m *reportServiceMock) MonthlyCSV(ctx context.Context, month, year int) ([]byte, error) {
	return m.csv, m.csvErr
}

func (m *reportServiceMock) MonthlyPDF(ctx context.Context, month, year int) ([]byte, error) {
	return m.pdf, m.pdfErr
}

func (m *reportServiceMock) Overview(ctx context.Context, from, to time.Time) (*models.OverviewReport, error) {
	m.lastFrom = from
	m.lastTo = to
	return m.overview, m.overviewErr
}

func TestReportHandlerMonthlyRegisterJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		register: &models.MonthlyRegister{Month: 3, Year: 2025, DaysInMonth: 31, TotalStudents: 12},
	}
	handler := NewReportHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/monthly-register?month=3&year=2025", nil)
	handler.MonthlyRegister(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.MonthlyRegister `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 31, envelope.Data.DaysInMonth)
}

func TestReportHandlerMonthlyRegisterCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{csv: []byte("Name,Grade\n")}
	handler := NewReportHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/monthly-register?month=3&year=2025&format=csv", nil)
	handler.MonthlyRegister(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "attendance-2025-03.csv")
}

func TestReportHandlerMonthlyRegisterPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{pdf: []byte("%PDF-1.4 stub")}
	handler := NewReportHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/monthly-register?month=3&year=2025&format=pdf", nil)
	handler.MonthlyRegister(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestReportHandlerMonthlyRegisterRejectsBadFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/monthly-register?month=3&year=2025&format=xlsx", nil)
	handler.MonthlyRegister(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerMonthlyRegisterRequiresMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/monthly-register?year=2025", nil)
	handler.MonthlyRegister(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerOverview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		overview: &models.OverviewReport{TotalStudents: 12, PresentCount: 10},
	}
	handler := NewReportHandler(mockSvc, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/overview?from=2025-03-01&to=2025-03-31", nil)
	handler.Overview(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), mockSvc.lastFrom)
	require.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), mockSvc.lastTo)
}

func TestReportHandlerOverviewRejectsReversedRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, time.UTC)

	c, w := newGinContext(http.MethodGet, "/reports/overview?from=2025-03-31&to=2025-03-01", nil)
	handler.Overview(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
