package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
)

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*models.AttendanceRecord
	nextID  int

	failFor map[string]error
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*models.AttendanceRecord)}
}

func (m *mockAttendanceRepo) ListWindow(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceRecord
	for _, r := range m.records {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.StudentID == studentID && !r.Date.Before(from) && r.Date.Before(to) {
			copy := *r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[record.StudentID]; ok {
		return err
	}
	for _, r := range m.records {
		if r.StudentID == record.StudentID && r.Day.Equal(record.Day) {
			r.Present = record.Present
			record.ID = r.ID
			return nil
		}
	}
	m.nextID++
	record.ID = fmt.Sprintf("rec-%d", m.nextID)
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockAttendanceRepo) UpdatePresent(ctx context.Context, id string, present bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if err, failSet := m.failFor[r.StudentID]; failSet {
		return err
	}
	r.Present = present
	return nil
}

func rosterRepo(names ...string) *mockStudentRepo {
	repo := newMockStudentRepo()
	for i, name := range names {
		repo.add(models.StudentDetail{
			Student: models.Student{
				ID:      fmt.Sprintf("stu-%d", i+1),
				Code:    fmt.Sprintf("DENIM%03d", i+1),
				Name:    name,
				GradeID: "grade-1",
			},
			GradeName: "DENIM",
			GradeYear: 3,
		})
	}
	return repo
}

func TestAttendanceServiceDayViewMaterialisesAbsentRows(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina", "Badrul", "Citra")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	rows, err := svc.DayView(context.Background(), time.Now(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.False(t, row.Present)
		assert.NotEmpty(t, row.RecordID)
	}
	assert.Len(t, attendance.records, 3)

	// second view reuses the materialised rows
	rows, err = svc.DayView(context.Background(), time.Now(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, attendance.records, 3)
}

func TestAttendanceServiceDayViewGradeFilter(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina", "Badrul")
	students.add(models.StudentDetail{
		Student:   models.Student{ID: "stu-50", Code: "MERAH001", Name: "Zara", GradeID: "grade-2"},
		GradeName: "MERAH",
		GradeYear: 1,
	})
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	rows, err := svc.DayView(context.Background(), time.Now(), models.StudentFilter{GradeID: "grade-1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// only the filtered grade gets materialised
	assert.Len(t, attendance.records, 2)
}

func TestAttendanceServicePastDayViewDoesNotShadowToday(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	rows, err := svc.DayView(context.Background(), yesterday, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// a scan today must create today's row, not flip yesterday's
	result, err := svc.Scan(context.Background(), "DENIM001")
	require.NoError(t, err)
	assert.False(t, result.AlreadyMarked)
	assert.True(t, result.Record.Present)
	require.Len(t, attendance.records, 2)

	yFrom, yTo := dates.DayWindow(yesterday, time.UTC)
	past, err := attendance.FindWindowByStudent(context.Background(), "stu-1", yFrom, yTo)
	require.NoError(t, err)
	assert.False(t, past.Present)
}

func TestAttendanceServiceScanMarksPresent(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	result, err := svc.Scan(context.Background(), "DENIM001")
	require.NoError(t, err)
	assert.False(t, result.AlreadyMarked)
	assert.True(t, result.Record.Present)
	assert.Equal(t, "Aina", result.Student.Name)
}

func TestAttendanceServiceScanIdempotent(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	first, err := svc.Scan(context.Background(), "DENIM001")
	require.NoError(t, err)
	assert.False(t, first.AlreadyMarked)

	second, err := svc.Scan(context.Background(), "DENIM001")
	require.NoError(t, err)
	assert.True(t, second.AlreadyMarked)
	assert.True(t, second.Record.Present)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Len(t, attendance.records, 1)
}

func TestAttendanceServiceScanUnknownCode(t *testing.T) {
	svc := NewAttendanceService(newMockAttendanceRepo(), rosterRepo(), nil, time.UTC, zap.NewNop())

	_, err := svc.Scan(context.Background(), "NOPE999")
	require.Error(t, err)
}

func TestAttendanceServiceSetPresentTogglesBothWays(t *testing.T) {
	attendance := newMockAttendanceRepo()
	students := rosterRepo("Aina")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	record, err := svc.SetPresent(context.Background(), "stu-1", true)
	require.NoError(t, err)
	assert.True(t, record.Present)

	record, err = svc.SetPresent(context.Background(), "stu-1", false)
	require.NoError(t, err)
	assert.False(t, record.Present)
	assert.Len(t, attendance.records, 1)
}

func TestAttendanceServiceMarkAllPresentPartialFailure(t *testing.T) {
	attendance := newMockAttendanceRepo()
	attendance.failFor = map[string]error{"stu-3": errors.New("write refused")}
	students := rosterRepo("Aina", "Badrul", "Citra", "Dania", "Elly")
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())

	result, err := svc.MarkAllPresent(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stu-3", result.Failures[0].StudentID)
}
