package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
)

type attendanceRepository interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error)
	FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	UpdatePresent(ctx context.Context, id string, present bool) error
}

type reportCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceService materialises daily attendance and processes card scans.
//
// A day's records are created lazily: the first view of a day writes one
// absent row per enrolled student, so the register always shows the full
// roster and absences need no explicit marking.
type AttendanceService struct {
	attendance attendanceRepository
	students   studentRepository
	cache      reportCacheInvalidator
	logger     *zap.Logger
	location   *time.Location

	markAllWorkers int
}

// NewAttendanceService constructs an AttendanceService. loc defines the
// school's calendar day.
func NewAttendanceService(attendance attendanceRepository, students studentRepository, cache reportCacheInvalidator, loc *time.Location, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		attendance:     attendance,
		students:       students,
		cache:          cache,
		logger:         logger,
		location:       loc,
		markAllWorkers: 8,
	}
}

// DayView returns the roster matching filter with each student's attendance
// state for the day containing ref, materialising absent rows for students
// who have none yet.
func (s *AttendanceService) DayView(ctx context.Context, ref time.Time, filter models.StudentFilter) ([]models.AttendanceRow, error) {
	from, to := dates.DayWindow(ref, s.location)

	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list students")
	}
	SortRoster(students)

	records, err := s.attendance.ListWindow(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list attendance")
	}

	// First-created row wins when imported data left duplicates.
	byStudent := make(map[string]models.AttendanceRecord, len(records))
	for _, record := range records {
		if _, seen := byStudent[record.StudentID]; !seen {
			byStudent[record.StudentID] = record
		}
	}

	rows := make([]models.AttendanceRow, 0, len(students))
	for _, student := range students {
		record, ok := byStudent[student.ID]
		if !ok {
			// Date must land inside the viewed window, not the wall
			// clock: materialising a past day with today's date would
			// leak the row into today's scan lookups.
			record = models.AttendanceRecord{
				StudentID: student.ID,
				Date:      from,
				Day:       from,
				Present:   false,
			}
			if err := s.attendance.Upsert(ctx, &record); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to materialise attendance row")
			}
		}
		rows = append(rows, models.AttendanceRow{
			StudentID:   student.ID,
			StudentCode: student.Code,
			Name:        student.Name,
			GradeID:     student.GradeID,
			GradeName:   student.GradeName,
			GradeYear:   student.GradeYear,
			RecordID:    record.ID,
			Present:     record.Present,
		})
	}
	return rows, nil
}

// Scan marks the student carrying the given card code present for today.
// Scanning an already-present student is reported, not repeated.
func (s *AttendanceService) Scan(ctx context.Context, code string) (*models.ScanResult, error) {
	student, err := s.students.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown student code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to resolve student code")
	}

	now := time.Now().In(s.location)
	from, to := dates.DayWindow(now, s.location)

	record, err := s.attendance.FindWindowByStudent(ctx, student.ID, from, to)
	switch {
	case err == nil:
		if record.Present {
			return &models.ScanResult{Student: *student, Record: *record, AlreadyMarked: true}, nil
		}
		if err := s.attendance.UpdatePresent(ctx, record.ID, true); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark attendance")
		}
		record.Present = true
	case errors.Is(err, sql.ErrNoRows):
		record = &models.AttendanceRecord{
			StudentID: student.ID,
			Date:      now,
			Day:       from,
			Present:   true,
		}
		if err := s.attendance.Upsert(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark attendance")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load attendance row")
	}

	s.invalidateMonth(ctx, from)
	s.logger.Info("attendance scan",
		zap.String("student_id", student.ID),
		zap.String("code", student.Code),
		zap.Bool("already_marked", false))

	return &models.ScanResult{Student: *student, Record: *record}, nil
}

// SetPresent sets a student's present flag for today, in either direction.
// Used by teachers correcting the register.
func (s *AttendanceService) SetPresent(ctx context.Context, studentID string, present bool) (*models.AttendanceRecord, error) {
	now := time.Now().In(s.location)
	from, to := dates.DayWindow(now, s.location)

	record, err := s.attendance.FindWindowByStudent(ctx, studentID, from, to)
	switch {
	case err == nil:
		if record.Present != present {
			if err := s.attendance.UpdatePresent(ctx, record.ID, present); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update attendance")
			}
			record.Present = present
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.students.FindByID(ctx, studentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
		}
		record = &models.AttendanceRecord{
			StudentID: studentID,
			Date:      now,
			Day:       from,
			Present:   present,
		}
		if err := s.attendance.Upsert(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to write attendance")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load attendance row")
	}

	s.invalidateMonth(ctx, from)
	return record, nil
}

// MarkAllPresent marks every enrolled student present for today, optionally
// scoped to one grade. Failures are collected per student; the run is never
// aborted midway.
func (s *AttendanceService) MarkAllPresent(ctx context.Context, gradeID string) (*models.AttendanceBulkResult, error) {
	students, err := s.students.List(ctx, models.StudentFilter{GradeID: gradeID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list students")
	}

	result := &models.AttendanceBulkResult{Processed: len(students)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.markAllWorkers)

	for _, student := range students {
		wg.Add(1)
		sem <- struct{}{}
		go func(student models.StudentDetail) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.SetPresent(ctx, student.ID, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, models.AttendanceBulkFailure{
					StudentID: student.ID,
					Reason:    err.Error(),
				})
				return
			}
			result.Succeeded++
		}(student)
	}
	wg.Wait()

	s.logger.Info("bulk attendance mark",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *AttendanceService) invalidateMonth(ctx context.Context, day time.Time) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("reports:monthly:%04d-%02d:*", day.Year(), int(day.Month()))
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:overview:*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}
