package models

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// AttendanceRecord marks one student as present or absent on one calendar
// day. Date is the creation instant; Day is the calendar day it covers and
// backs the unique (student_id, day) constraint.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Day       time.Time `db:"day" json:"day"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRow is one assembled roster row for a day's attendance view.
type AttendanceRow struct {
	StudentID   string `json:"student_id"`
	StudentCode string `json:"student_code"`
	Name        string `json:"name"`
	GradeID     string `json:"grade_id"`
	GradeName   string `json:"grade_name"`
	GradeYear   int    `json:"grade_year"`
	RecordID    string `json:"record_id"`
	Present     bool   `json:"present"`
}

// ScanResult reports the outcome of a card scan. AlreadyMarked is true when
// the student was present before the scan, which scanning stations surface
// as a warning instead of a success.
type ScanResult struct {
	Student       StudentDetail    `json:"student"`
	Record        AttendanceRecord `json:"record"`
	AlreadyMarked bool             `json:"already_marked"`
}

// AttendanceBulkFailure reports one student whose bulk marking failed.
type AttendanceBulkFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// AttendanceBulkResult summarises a mark-all run with per-student failures.
type AttendanceBulkResult struct {
	Processed int                     `json:"processed"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Failures  []AttendanceBulkFailure `json:"failures,omitempty"`
}

// AttendanceHistoryRecord is a raw historical attendance row, including the
// untyped remainder of records imported from the legacy store. Date is
// nullable because some imported rows only carried a date inside the legacy
// payload.
type AttendanceHistoryRecord struct {
	ID        string         `db:"id"`
	StudentID string         `db:"student_id"`
	Date      sql.NullTime   `db:"date"`
	Present   bool           `db:"present"`
	Legacy    []byte         `db:"legacy"`
	CreatedAt sql.NullTime   `db:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

// legacyPresentValues are the textual encodings of "present" observed across
// the dataset's lifetime. Matching is case-insensitive.
var legacyPresentValues = map[string]struct{}{
	"present": {}, "p": {}, "x": {}, "hadir": {},
	"1": {}, "true": {}, "y": {}, "yes": {},
}

// legacyPresentFields are the field names that historically carried the
// present flag before the schema settled on "present".
var legacyPresentFields = []string{"status", "value", "attendance", "mark", "result", "state"}

// IsPresent normalizes the record into a single boolean, tolerating every
// legacy encoding. Decoding happens here once; consumers only ever see the
// boolean.
func (r AttendanceHistoryRecord) IsPresent() bool {
	if r.Present {
		return true
	}
	legacy := r.legacyFields()
	if legacy == nil {
		return false
	}
	if v, ok := legacy["present"]; ok && legacyTruthy(v) {
		return true
	}
	for _, field := range legacyPresentFields {
		if v, ok := legacy[field]; ok && legacyTruthy(v) {
			return true
		}
	}
	return false
}

// ObservedDate resolves the day the record covers, falling back to legacy
// date fields when the typed column is null. ok is false when no candidate
// parses.
func (r AttendanceHistoryRecord) ObservedDate() (time.Time, bool) {
	if r.Date.Valid {
		return r.Date.Time, true
	}
	legacy := r.legacyFields()
	for _, field := range []string{"date", "created", "updated", "timestamp"} {
		raw, ok := legacy[field].(string)
		if !ok || raw == "" {
			continue
		}
		if t, err := parseLegacyTime(raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Timestamp returns the record's edit time for latest-wins resolution:
// updated, then created, then the covered date, then zero.
func (r AttendanceHistoryRecord) Timestamp() time.Time {
	if r.UpdatedAt.Valid {
		return r.UpdatedAt.Time
	}
	if r.CreatedAt.Valid {
		return r.CreatedAt.Time
	}
	if d, ok := r.ObservedDate(); ok {
		return d
	}
	return time.Time{}
}

func (r AttendanceHistoryRecord) legacyFields() map[string]interface{} {
	if len(r.Legacy) == 0 {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(r.Legacy, &fields); err != nil {
		return nil
	}
	return fields
}

func legacyTruthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		_, ok := legacyPresentValues[strings.ToLower(strings.TrimSpace(t))]
		return ok
	default:
		return false
	}
}

func parseLegacyTime(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05.000Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
