package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/dates"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
)

type canteenRepository interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]models.CanteenRecord, error)
	FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.CanteenRecord, error)
	Upsert(ctx context.Context, record *models.CanteenRecord) error
	ListReceivedWithStudents(ctx context.Context, from, to time.Time) ([]models.CanteenStudentRow, error)
}

type presentRosterSource interface {
	DayView(ctx context.Context, ref time.Time, filter models.StudentFilter) ([]models.AttendanceRow, error)
}

// CanteenService tracks lunch distribution. Only students marked present
// today appear on the canteen list; lunch rows are written on first toggle,
// not materialised upfront.
type CanteenService struct {
	canteen    canteenRepository
	attendance presentRosterSource
	logger     *zap.Logger
	location   *time.Location

	markAllWorkers int
}

// NewCanteenService constructs a CanteenService.
func NewCanteenService(canteen canteenRepository, attendance presentRosterSource, loc *time.Location, logger *zap.Logger) *CanteenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CanteenService{
		canteen:        canteen,
		attendance:     attendance,
		logger:         logger,
		location:       loc,
		markAllWorkers: 8,
	}
}

// TodayView returns today's present students joined with their lunch state,
// optionally narrowed by grade or name/code search.
func (s *CanteenService) TodayView(ctx context.Context, filter models.StudentFilter) ([]models.CanteenRow, error) {
	now := time.Now().In(s.location)
	from, to := dates.DayWindow(now, s.location)

	roster, err := s.attendance.DayView(ctx, now, filter)
	if err != nil {
		return nil, err
	}

	records, err := s.canteen.ListWindow(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list canteen records")
	}
	byStudent := make(map[string]models.CanteenRecord, len(records))
	for _, record := range records {
		if _, seen := byStudent[record.StudentID]; !seen {
			byStudent[record.StudentID] = record
		}
	}

	rows := make([]models.CanteenRow, 0, len(roster))
	for _, attendee := range roster {
		if !attendee.Present {
			continue
		}
		row := models.CanteenRow{
			StudentID:   attendee.StudentID,
			StudentCode: attendee.StudentCode,
			Name:        attendee.Name,
			GradeID:     attendee.GradeID,
			GradeName:   attendee.GradeName,
			GradeYear:   attendee.GradeYear,
		}
		if record, ok := byStudent[attendee.StudentID]; ok {
			row.RecordID = record.ID
			row.LunchReceived = record.LunchReceived
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SetLunch records whether a student received lunch today.
func (s *CanteenService) SetLunch(ctx context.Context, studentID string, received bool) (*models.CanteenRecord, error) {
	now := time.Now().In(s.location)
	from, to := dates.DayWindow(now, s.location)

	record, err := s.canteen.FindWindowByStudent(ctx, studentID, from, to)
	switch {
	case err == nil:
		if record.LunchReceived != received {
			record.LunchReceived = received
			if err := s.canteen.Upsert(ctx, record); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update lunch record")
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		record = &models.CanteenRecord{
			StudentID:     studentID,
			Date:          now,
			Day:           from,
			LunchReceived: received,
		}
		if err := s.canteen.Upsert(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to write lunch record")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load lunch record")
	}

	return record, nil
}

// MarkAllLunch marks lunch received for every present student in the
// filtered view without one yet. Per-student failures are collected; the
// run always completes.
func (s *CanteenService) MarkAllLunch(ctx context.Context, filter models.StudentFilter) (*models.CanteenBulkResult, error) {
	rows, err := s.TodayView(ctx, filter)
	if err != nil {
		return nil, err
	}

	pending := make([]models.CanteenRow, 0, len(rows))
	for _, row := range rows {
		if !row.LunchReceived {
			pending = append(pending, row)
		}
	}

	result := &models.CanteenBulkResult{Processed: len(pending)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.markAllWorkers)

	for _, row := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(row models.CanteenRow) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.SetLunch(ctx, row.StudentID, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, models.CanteenBulkFailure{
					StudentID: row.StudentID,
					Reason:    err.Error(),
				})
				return
			}
			result.Succeeded++
		}(row)
	}
	wg.Wait()

	s.logger.Info("bulk lunch mark",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

// ReceivedToday returns today's lunch recipients with student and grade
// details in roster order. Used as the invoice line source.
func (s *CanteenService) ReceivedToday(ctx context.Context) ([]models.CanteenStudentRow, error) {
	now := time.Now().In(s.location)
	from, to := dates.DayWindow(now, s.location)

	received, err := s.canteen.ListReceivedWithStudents(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list lunch recipients")
	}
	return received, nil
}
