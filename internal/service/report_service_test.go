package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

func historyRecord(studentID string, date time.Time, present bool) models.AttendanceHistoryRecord {
	return models.AttendanceHistoryRecord{
		StudentID: studentID,
		Date:      sql.NullTime{Time: date, Valid: true},
		Present:   present,
		CreatedAt: sql.NullTime{Time: date, Valid: true},
		UpdatedAt: sql.NullTime{Time: date, Valid: true},
	}
}

func monthRoster(names ...string) []models.StudentDetail {
	out := make([]models.StudentDetail, 0, len(names))
	for i, name := range names {
		out = append(out, models.StudentDetail{
			Student:   models.Student{ID: names[i], Name: name},
			GradeName: "DENIM",
			GradeYear: 3,
		})
	}
	return out
}

func TestBuildMonthAbsentByDefault(t *testing.T) {
	students := monthRoster("Aina")
	register := BuildMonth(students, nil, 3, 2025, time.UTC)

	require.Len(t, register.Students, 1)
	row := register.Students[0]
	assert.Equal(t, 31, register.DaysInMonth)
	assert.Equal(t, 0, row.Present)
	assert.Equal(t, 31, row.Absent)
	assert.Equal(t, 31, row.Total)
	for _, cell := range row.Days {
		assert.Empty(t, cell)
	}
}

func TestBuildMonthMarksPresentDays(t *testing.T) {
	students := monthRoster("Aina")
	history := []models.AttendanceHistoryRecord{
		historyRecord("Aina", time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), true),
		historyRecord("Aina", time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC), true),
		historyRecord("Aina", time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC), false),
	}
	register := BuildMonth(students, history, 3, 2025, time.UTC)

	row := register.Students[0]
	assert.Equal(t, "X", row.Days[2])
	assert.Equal(t, "X", row.Days[4])
	assert.Empty(t, row.Days[5])
	assert.Equal(t, 2, row.Present)
	assert.Equal(t, 29, row.Absent)
	assert.Equal(t, 2, register.DayTotals[2].Present+register.DayTotals[4].Present)
}

func TestBuildMonthLatestWins(t *testing.T) {
	students := monthRoster("Aina")
	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	early := historyRecord("Aina", day, true)
	late := historyRecord("Aina", day, false)
	late.UpdatedAt = sql.NullTime{Time: day.Add(2 * time.Hour), Valid: true}

	register := BuildMonth(students, []models.AttendanceHistoryRecord{early, late}, 3, 2025, time.UTC)
	assert.Empty(t, register.Students[0].Days[9])

	// reversed input order must not change the outcome
	register = BuildMonth(students, []models.AttendanceHistoryRecord{late, early}, 3, 2025, time.UTC)
	assert.Empty(t, register.Students[0].Days[9])
}

func TestBuildMonthEqualTimestampLaterRowWins(t *testing.T) {
	students := monthRoster("Aina")
	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	first := historyRecord("Aina", day, false)
	second := historyRecord("Aina", day, true)

	register := BuildMonth(students, []models.AttendanceHistoryRecord{first, second}, 3, 2025, time.UTC)
	assert.Equal(t, "X", register.Students[0].Days[9])
}

func TestBuildMonthLegacyRowsDecoded(t *testing.T) {
	students := monthRoster("Aina")
	history := []models.AttendanceHistoryRecord{
		{
			StudentID: "Aina",
			Legacy:    []byte(`{"status":"hadir","date":"2025-03-12"}`),
		},
	}
	register := BuildMonth(students, history, 3, 2025, time.UTC)
	assert.Equal(t, "X", register.Students[0].Days[11])
}

func TestBuildMonthLeapFebruary(t *testing.T) {
	students := monthRoster("Aina")

	register := BuildMonth(students, nil, 2, 2024, time.UTC)
	assert.Equal(t, 29, register.DaysInMonth)
	assert.Equal(t, 29, register.Students[0].Absent)

	register = BuildMonth(students, nil, 2, 2025, time.UTC)
	assert.Equal(t, 28, register.DaysInMonth)
	assert.Equal(t, 28, register.Students[0].Absent)
}

func TestBuildMonthIgnoresOtherMonths(t *testing.T) {
	students := monthRoster("Aina")
	history := []models.AttendanceHistoryRecord{
		historyRecord("Aina", time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), true),
		historyRecord("Aina", time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC), true),
	}
	register := BuildMonth(students, history, 3, 2025, time.UTC)
	assert.Equal(t, 0, register.Students[0].Present)
}

func TestBuildMonthTimezoneBoundary(t *testing.T) {
	kl, err := time.LoadLocation("Asia/Kuala_Lumpur")
	require.NoError(t, err)

	students := monthRoster("Aina")
	// 2025-03-31 23:30 UTC is already April 1st in Kuala Lumpur
	history := []models.AttendanceHistoryRecord{
		historyRecord("Aina", time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC), true),
	}

	register := BuildMonth(students, history, 3, 2025, kl)
	assert.Equal(t, 0, register.Students[0].Present)

	register = BuildMonth(students, history, 4, 2025, kl)
	assert.Equal(t, "X", register.Students[0].Days[0])
}

func TestBuildMonthNaturalNameOrder(t *testing.T) {
	students := []models.StudentDetail{
		{Student: models.Student{ID: "a", Name: "Student 10"}},
		{Student: models.Student{ID: "b", Name: "Student 2"}},
		{Student: models.Student{ID: "c", Name: "Aina"}},
	}
	register := BuildMonth(students, nil, 3, 2025, time.UTC)

	require.Len(t, register.Students, 3)
	assert.Equal(t, "Aina", register.Students[0].Name)
	assert.Equal(t, "Student 2", register.Students[1].Name)
	assert.Equal(t, "Student 10", register.Students[2].Name)
}

type stubAttendanceCounts struct {
	total   int
	present int
}

func (s stubAttendanceCounts) ListHistory(ctx context.Context, from, to time.Time) ([]models.AttendanceHistoryRecord, error) {
	return nil, nil
}

func (s stubAttendanceCounts) CountWindow(ctx context.Context, from, to time.Time) (int, int, error) {
	return s.total, s.present, nil
}

type stubInvoiceSummary struct {
	summary models.InvoiceRangeSummary
}

func (s stubInvoiceSummary) AggregateRange(ctx context.Context, from, to time.Time) (*models.InvoiceRangeSummary, error) {
	return &s.summary, nil
}

func TestReportServiceOverview(t *testing.T) {
	students := newMockStudentRepo()
	for _, detail := range monthRoster("Aina", "Badrul", "Citra") {
		students.add(detail)
	}
	svc := NewReportService(
		stubAttendanceCounts{total: 40, present: 36},
		students,
		stubInvoiceSummary{models.InvoiceRangeSummary{Count: 2, Paid: 1, Unpaid: 1}},
		nil, time.UTC, ReportConfig{}, zap.NewNop())

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Overview(context.Background(), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalStudents)
	assert.Equal(t, 40, report.AttendanceRecords)
	assert.Equal(t, 36, report.PresentCount)
	assert.InDelta(t, 90.0, report.AttendancePercentage, 0.001)
	assert.Equal(t, 2, report.InvoicesGenerated)

	_, err = svc.Overview(context.Background(), from, from)
	require.Error(t, err)
}

func TestNextInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-0001", NextInvoiceNumber(""))
	assert.Equal(t, "INV-0001", NextInvoiceNumber("garbage"))
	assert.Equal(t, "INV-0001", NextInvoiceNumber("INV-x1"))
	assert.Equal(t, "INV-0008", NextInvoiceNumber("INV-0007"))
	assert.Equal(t, "INV-0100", NextInvoiceNumber("INV-0099"))
	assert.Equal(t, "INV-10000", NextInvoiceNumber("INV-9999"))
}
