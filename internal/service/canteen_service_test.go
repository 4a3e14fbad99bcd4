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
)

type mockCanteenRepo struct {
	mu      sync.Mutex
	records map[string]*models.CanteenRecord
	nextID  int

	failFor map[string]error
}

func newMockCanteenRepo() *mockCanteenRepo {
	return &mockCanteenRepo{records: make(map[string]*models.CanteenRecord)}
}

func (m *mockCanteenRepo) ListWindow(ctx context.Context, from, to time.Time) ([]models.CanteenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CanteenRecord
	for _, r := range m.records {
		if !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockCanteenRepo) FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.CanteenRecord, error) {
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

func (m *mockCanteenRepo) Upsert(ctx context.Context, record *models.CanteenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[record.StudentID]; ok {
		return err
	}
	for _, r := range m.records {
		if r.StudentID == record.StudentID && r.Day.Equal(record.Day) {
			r.LunchReceived = record.LunchReceived
			record.ID = r.ID
			return nil
		}
	}
	m.nextID++
	record.ID = fmt.Sprintf("can-%d", m.nextID)
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockCanteenRepo) ListReceivedWithStudents(ctx context.Context, from, to time.Time) ([]models.CanteenStudentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CanteenStudentRow
	for _, r := range m.records {
		if r.LunchReceived && !r.Date.Before(from) && r.Date.Before(to) {
			out = append(out, models.CanteenStudentRow{CanteenRecord: *r})
		}
	}
	return out, nil
}

// presentStudents builds an attendance stack where the named students are
// already marked present today.
func presentStudents(t *testing.T, names ...string) (*AttendanceService, *mockStudentRepo) {
	t.Helper()
	attendance := newMockAttendanceRepo()
	students := rosterRepo(names...)
	svc := NewAttendanceService(attendance, students, nil, time.UTC, zap.NewNop())
	for i := range names {
		_, err := svc.SetPresent(context.Background(), fmt.Sprintf("stu-%d", i+1), true)
		require.NoError(t, err)
	}
	return svc, students
}

func TestCanteenServiceTodayViewOnlyPresentStudents(t *testing.T) {
	attendanceSvc, students := presentStudents(t, "Aina", "Badrul")
	// third student enrolled but absent
	students.add(models.StudentDetail{
		Student:   models.Student{ID: "stu-99", Code: "DENIM099", Name: "Zack", GradeID: "grade-1"},
		GradeName: "DENIM",
		GradeYear: 3,
	})

	canteen := newMockCanteenRepo()
	svc := NewCanteenService(canteen, attendanceSvc, time.UTC, zap.NewNop())

	rows, err := svc.TodayView(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.NotEqual(t, "stu-99", row.StudentID)
		assert.False(t, row.LunchReceived)
		assert.Empty(t, row.RecordID)
	}
}

func TestCanteenServiceSetLunchCreatesThenToggles(t *testing.T) {
	attendanceSvc, _ := presentStudents(t, "Aina")
	canteen := newMockCanteenRepo()
	svc := NewCanteenService(canteen, attendanceSvc, time.UTC, zap.NewNop())

	record, err := svc.SetLunch(context.Background(), "stu-1", true)
	require.NoError(t, err)
	assert.True(t, record.LunchReceived)

	record, err = svc.SetLunch(context.Background(), "stu-1", false)
	require.NoError(t, err)
	assert.False(t, record.LunchReceived)
	assert.Len(t, canteen.records, 1)
}

func TestCanteenServiceMarkAllLunchPartialFailure(t *testing.T) {
	attendanceSvc, _ := presentStudents(t, "Aina", "Badrul", "Citra", "Dania", "Elly")
	canteen := newMockCanteenRepo()
	canteen.failFor = map[string]error{"stu-2": errors.New("write refused")}
	svc := NewCanteenService(canteen, attendanceSvc, time.UTC, zap.NewNop())

	result, err := svc.MarkAllLunch(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stu-2", result.Failures[0].StudentID)
}

func TestCanteenServiceMarkAllLunchSkipsAlreadyServed(t *testing.T) {
	attendanceSvc, _ := presentStudents(t, "Aina", "Badrul")
	canteen := newMockCanteenRepo()
	svc := NewCanteenService(canteen, attendanceSvc, time.UTC, zap.NewNop())

	_, err := svc.SetLunch(context.Background(), "stu-1", true)
	require.NoError(t, err)

	result, err := svc.MarkAllLunch(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
}

func TestCanteenServiceMarkAllLunchHonorsFilter(t *testing.T) {
	attendanceSvc, students := presentStudents(t, "Aina", "Badrul")
	students.add(models.StudentDetail{
		Student:   models.Student{ID: "stu-50", Code: "MERAH001", Name: "Zara", GradeID: "grade-2"},
		GradeName: "MERAH",
		GradeYear: 1,
	})
	_, err := attendanceSvc.SetPresent(context.Background(), "stu-50", true)
	require.NoError(t, err)

	canteen := newMockCanteenRepo()
	svc := NewCanteenService(canteen, attendanceSvc, time.UTC, zap.NewNop())

	result, err := svc.MarkAllLunch(context.Background(), models.StudentFilter{GradeID: "grade-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)

	// the other grade's student stays unserved
	assert.Len(t, canteen.records, 2)
	for _, record := range canteen.records {
		assert.NotEqual(t, "stu-50", record.StudentID)
	}
}
