package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/export"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/natsort"
)

type attendanceHistorySource interface {
	ListHistory(ctx context.Context, from, to time.Time) ([]models.AttendanceHistoryRecord, error)
	CountWindow(ctx context.Context, from, to time.Time) (total int, present int, err error)
}

type rosterSource interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
	CountAll(ctx context.Context) (int, error)
}

type invoiceAggregator interface {
	AggregateRange(ctx context.Context, from, to time.Time) (*models.InvoiceRangeSummary, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportConfig tunes report caching.
type ReportConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	SchoolName   string
}

// ReportService computes the monthly attendance register and range
// overviews, with optional Redis-backed caching and CSV/PDF rendering.
type ReportService struct {
	attendance attendanceHistorySource
	students   rosterSource
	invoices   invoiceAggregator
	cache      reportCache
	logger     *zap.Logger
	location   *time.Location
	config     ReportConfig

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewReportService constructs a ReportService.
func NewReportService(attendance attendanceHistorySource, students rosterSource, invoices invoiceAggregator, cache reportCache, loc *time.Location, config ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &ReportService{
		attendance: attendance,
		students:   students,
		invoices:   invoices,
		cache:      cache,
		logger:     logger,
		location:   loc,
		config:     config,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewLandscapePDFExporter(),
	}
}

// Monthly returns the attendance matrix for the given month.
func (s *ReportService) Monthly(ctx context.Context, month, year int) (*models.MonthlyRegister, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}

	cacheKey := fmt.Sprintf("reports:monthly:%04d-%02d:v1", year, month)
	if s.config.CacheEnabled && s.cache != nil {
		var cached models.MonthlyRegister
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	students, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list students")
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	monthEnd := monthStart.AddDate(0, 1, 0)
	history, err := s.attendance.ListHistory(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load attendance history")
	}

	register := BuildMonth(students, history, month, year, s.location)

	if s.config.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, register, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache monthly register", zap.Error(err))
		}
	}
	return register, nil
}

// MonthlyCSV renders the month matrix as CSV.
func (s *ReportService) MonthlyCSV(ctx context.Context, month, year int) ([]byte, error) {
	register, err := s.Monthly(ctx, month, year)
	if err != nil {
		return nil, err
	}
	return s.csv.Render(monthlyDataset(register))
}

// MonthlyPDF renders the month matrix as a landscape PDF.
func (s *ReportService) MonthlyPDF(ctx context.Context, month, year int) ([]byte, error) {
	register, err := s.Monthly(ctx, month, year)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Attendance Register %04d-%02d", year, month)
	subtitle := s.config.SchoolName
	return s.pdf.Render(monthlyDataset(register), title, subtitle)
}

// Overview summarises attendance and invoicing inside [from, to).
func (s *ReportService) Overview(ctx context.Context, from, to time.Time) (*models.OverviewReport, error) {
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be after from")
	}

	cacheKey := fmt.Sprintf("reports:overview:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if s.config.CacheEnabled && s.cache != nil {
		var cached models.OverviewReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	population, err := s.students.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count students")
	}

	total, present, err := s.attendance.CountWindow(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count attendance")
	}

	invoiceSummary, err := s.invoices.AggregateRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to aggregate invoices")
	}

	report := &models.OverviewReport{
		From:              from,
		To:                to,
		TotalStudents:     population,
		AttendanceRecords: total,
		PresentCount:      present,
		InvoicesGenerated: invoiceSummary.Count,
		InvoiceAmount:     invoiceSummary.Amount,
		PaidInvoices:      invoiceSummary.Paid,
		UnpaidInvoices:    invoiceSummary.Unpaid,
		GeneratedAt:       time.Now().In(s.location),
	}
	if total > 0 {
		report.AttendancePercentage = float64(present) / float64(total) * 100
	}

	if s.config.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache overview report", zap.Error(err))
		}
	}
	return report, nil
}

// BuildMonth assembles the month matrix from the roster and raw history
// rows. It is a pure function over its inputs.
//
// Duplicate rows for the same student and day are resolved latest-wins by
// edit timestamp; a later row with an equal timestamp still replaces the
// earlier one, matching how re-imports overwrote records. Days without a
// present row count as absent, so the absent column always equals the days
// in the month minus the present count.
func BuildMonth(students []models.StudentDetail, history []models.AttendanceHistoryRecord, month, year int, loc *time.Location) *models.MonthlyRegister {
	if loc == nil {
		loc = time.UTC
	}
	daysInMonth := dates.DaysInMonth(month, year)

	type dayState struct {
		present bool
		stamp   time.Time
	}
	// student id -> day of month -> winning record state
	matrix := make(map[string]map[int]dayState)

	for _, record := range history {
		observed, ok := record.ObservedDate()
		if !ok {
			continue
		}
		observed = observed.In(loc)
		if int(observed.Month()) != month || observed.Year() != year {
			continue
		}
		day := observed.Day()

		byDay := matrix[record.StudentID]
		if byDay == nil {
			byDay = make(map[int]dayState)
			matrix[record.StudentID] = byDay
		}
		stamp := record.Timestamp()
		if existing, seen := byDay[day]; !seen || !stamp.Before(existing.stamp) {
			byDay[day] = dayState{present: record.IsPresent(), stamp: stamp}
		}
	}

	register := &models.MonthlyRegister{
		Month:         month,
		Year:          year,
		DaysInMonth:   daysInMonth,
		TotalStudents: len(students),
		DayTotals:     make([]models.MonthlyDayTotal, daysInMonth),
		GeneratedAt:   time.Now().In(loc),
	}
	for i := range register.DayTotals {
		register.DayTotals[i].Day = i + 1
	}

	rows := make([]models.MonthlyStudentRow, 0, len(students))
	for _, student := range students {
		row := models.MonthlyStudentRow{
			StudentID: student.ID,
			Name:      student.Name,
			GradeName: student.GradeName,
			GradeYear: student.GradeYear,
			Days:      make([]string, daysInMonth),
			Total:     daysInMonth,
		}
		byDay := matrix[student.ID]
		for day := 1; day <= daysInMonth; day++ {
			if state, ok := byDay[day]; ok && state.present {
				row.Days[day-1] = "X"
				row.Present++
				register.DayTotals[day-1].Present++
			}
		}
		row.Absent = daysInMonth - row.Present
		register.TotalPresent += row.Present
		register.TotalAbsent += row.Absent
		rows = append(rows, row)
	}

	for i := range register.DayTotals {
		register.DayTotals[i].Absent = len(students) - register.DayTotals[i].Present
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rowLess(rows[i], rows[j])
	})
	register.Students = rows
	return register
}

// rowLess orders register rows by student name, numeric-aware.
func rowLess(a, b models.MonthlyStudentRow) bool {
	return natsort.Less(a.Name, b.Name)
}

func monthlyDataset(register *models.MonthlyRegister) export.Dataset {
	headers := []string{"Name", "Grade"}
	for day := 1; day <= register.DaysInMonth; day++ {
		headers = append(headers, strconv.Itoa(day))
	}
	headers = append(headers, "Present", "Absent", "Total")

	rows := make([]map[string]string, 0, len(register.Students))
	for _, student := range register.Students {
		row := map[string]string{
			"Name":    student.Name,
			"Grade":   fmt.Sprintf("Tahun %d %s", student.GradeYear, student.GradeName),
			"Present": strconv.Itoa(student.Present),
			"Absent":  strconv.Itoa(student.Absent),
			"Total":   strconv.Itoa(student.Total),
		}
		for day := 1; day <= register.DaysInMonth; day++ {
			row[strconv.Itoa(day)] = student.Days[day-1]
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
