package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyStudentRow is one student's line in the monthly attendance
// register: one cell per day ("X" for present, empty otherwise) plus totals.
type MonthlyStudentRow struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	GradeName string   `json:"grade_name"`
	GradeYear int      `json:"grade_year"`
	Days      []string `json:"days"`
	Present   int      `json:"present"`
	Absent    int      `json:"absent"`
	Total     int      `json:"total"`
}

// MonthlyDayTotal aggregates one day column across all students.
type MonthlyDayTotal struct {
	Day     int `json:"day"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// MonthlyRegister is the fully computed month matrix, render-ready: every
// total is already summed so the caller only formats.
type MonthlyRegister struct {
	Month         int                 `json:"month"`
	Year          int                 `json:"year"`
	DaysInMonth   int                 `json:"days_in_month"`
	Students      []MonthlyStudentRow `json:"students"`
	DayTotals     []MonthlyDayTotal   `json:"day_totals"`
	TotalStudents int                 `json:"total_students"`
	TotalPresent  int                 `json:"total_present"`
	TotalAbsent   int                 `json:"total_absent"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// OverviewReport summarises system activity inside a date range.
type OverviewReport struct {
	From                 time.Time       `json:"from"`
	To                   time.Time       `json:"to"`
	TotalStudents        int             `json:"total_students"`
	AttendanceRecords    int             `json:"attendance_records"`
	PresentCount         int             `json:"present_count"`
	AttendancePercentage float64         `json:"attendance_percentage"`
	InvoicesGenerated    int             `json:"invoices_generated"`
	InvoiceAmount        decimal.Decimal `json:"invoice_amount"`
	PaidInvoices         int             `json:"paid_invoices"`
	UnpaidInvoices       int             `json:"unpaid_invoices"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of runtime counters exposed for
// dashboards.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
