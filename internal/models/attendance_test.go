package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsPresentExplicitBoolean(t *testing.T) {
	assert.True(t, AttendanceHistoryRecord{Present: true}.IsPresent())
	assert.False(t, AttendanceHistoryRecord{Present: false}.IsPresent())
}

func TestIsPresentLegacyEncodings(t *testing.T) {
	cases := []string{
		`{"present":"true"}`,
		`{"present":1}`,
		`{"present":"1"}`,
		`{"status":"present"}`,
		`{"status":"P"}`,
		`{"value":"x"}`,
		`{"attendance":"HADIR"}`,
		`{"mark":"1"}`,
		`{"result":"yes"}`,
		`{"state":"Y"}`,
	}
	for _, raw := range cases {
		rec := AttendanceHistoryRecord{Legacy: []byte(raw)}
		assert.True(t, rec.IsPresent(), "expected present for %s", raw)
	}
}

func TestIsPresentRejectsNoise(t *testing.T) {
	cases := []string{
		`{"status":"absent"}`,
		`{"status":"A"}`,
		`{"value":0}`,
		`{"mark":""}`,
		`{"note":"present"}`,
		`not json`,
	}
	for _, raw := range cases {
		rec := AttendanceHistoryRecord{Legacy: []byte(raw)}
		assert.False(t, rec.IsPresent(), "expected absent for %s", raw)
	}
}

func TestObservedDateFallsBackToLegacy(t *testing.T) {
	rec := AttendanceHistoryRecord{Legacy: []byte(`{"date":"2024-02-29 08:15:00.000Z"}`)}
	got, ok := rec.ObservedDate()
	assert.True(t, ok)
	assert.Equal(t, 29, got.Day())

	rec = AttendanceHistoryRecord{Legacy: []byte(`{"created":"2023-11-02T01:02:03Z"}`)}
	got, ok = rec.ObservedDate()
	assert.True(t, ok)
	assert.Equal(t, time.November, got.Month())

	rec = AttendanceHistoryRecord{Legacy: []byte(`{"date":"yesterday"}`)}
	_, ok = rec.ObservedDate()
	assert.False(t, ok)
}

func TestTimestampPreference(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := AttendanceHistoryRecord{
		Date:      sql.NullTime{Time: day, Valid: true},
		CreatedAt: sql.NullTime{Time: created, Valid: true},
		UpdatedAt: sql.NullTime{Time: updated, Valid: true},
	}
	assert.Equal(t, updated, rec.Timestamp())

	rec.UpdatedAt = sql.NullTime{}
	assert.Equal(t, created, rec.Timestamp())

	rec.CreatedAt = sql.NullTime{}
	assert.Equal(t, day, rec.Timestamp())

	rec.Date = sql.NullTime{}
	assert.True(t, rec.Timestamp().IsZero())
}
