package models

import "time"

// CanteenRecord marks one lunch handed out to one student on one day.
// Unlike attendance, rows are only created when a toggle happens.
type CanteenRecord struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Date          time.Time `db:"date" json:"date"`
	Day           time.Time `db:"day" json:"day"`
	LunchReceived bool      `db:"lunch_received" json:"lunch_received"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CanteenRow is a present student joined against today's canteen record, if
// any. RecordID is empty when no toggle has happened yet.
type CanteenRow struct {
	StudentID     string `json:"student_id"`
	StudentCode   string `json:"student_code"`
	Name          string `json:"name"`
	GradeID       string `json:"grade_id"`
	GradeName     string `json:"grade_name"`
	GradeYear     int    `json:"grade_year"`
	RecordID      string `json:"record_id,omitempty"`
	LunchReceived bool   `json:"lunch_received"`
}

// CanteenBulkFailure reports one student whose bulk toggle failed.
type CanteenBulkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// CanteenBulkResult summarises a mark-all run. Partial success is the
// expected outcome, not an error.
type CanteenBulkResult struct {
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Failures  []CanteenBulkFailure `json:"failures,omitempty"`
}

// CanteenStudentRow is a canteen record expanded with student and grade
// attributes, used for invoice line building.
type CanteenStudentRow struct {
	CanteenRecord
	StudentCode string `db:"student_code" json:"student_code"`
	StudentName string `db:"student_name" json:"student_name"`
	GradeName   string `db:"grade_name" json:"grade_name"`
	GradeYear   int    `db:"grade_year" json:"grade_year"`
}
