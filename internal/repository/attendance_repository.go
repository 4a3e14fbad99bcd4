package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// AttendanceRepository manages daily attendance rows. Every query that
// touches "a day" works on the half-open window [from, to) resolved by the
// caller in the school's timezone.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListWindow returns all attendance rows whose date falls inside [from, to).
func (r *AttendanceRepository) ListWindow(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, day, present, created_at, updated_at
        FROM attendance WHERE date >= $1 AND date < $2 ORDER BY created_at`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("list attendance window: %w", err)
	}
	return records, nil
}

// FindWindowByStudent returns the student's attendance row inside [from, to).
// When duplicates survive from imported data the earliest-created row wins.
// Returns sql.ErrNoRows when the student has no row in the window.
func (r *AttendanceRepository) FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, day, present, created_at, updated_at
        FROM attendance WHERE student_id = $1 AND date >= $2 AND date < $3
        ORDER BY created_at LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, from, to); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert inserts the record or, when a row for (student_id, day) already
// exists, updates its present flag. The unique constraint makes concurrent
// materialization of the same day safe.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance (id, student_id, date, day, present, created_at, updated_at)
        VALUES (:id, :student_id, :date, :day, :present, :created_at, :updated_at)
        ON CONFLICT (student_id, day) DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpdatePresent flips the present flag on an existing row by ID.
func (r *AttendanceRepository) UpdatePresent(ctx context.Context, id string, present bool) error {
	const query = `UPDATE attendance SET present = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, present, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListHistory returns every attendance row for the given students, raw and
// untyped-legacy included, inside [from, to). The month report decodes the
// legacy payload and resolves duplicates itself.
func (r *AttendanceRepository) ListHistory(ctx context.Context, from, to time.Time) ([]models.AttendanceHistoryRecord, error) {
	const query = `SELECT id, student_id, date, present, legacy, created_at, updated_at
        FROM attendance
        WHERE (date >= $1 AND date < $2) OR date IS NULL
        ORDER BY student_id, created_at`
	var records []models.AttendanceHistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return records, nil
}

// CountWindow returns total and present row counts inside [from, to).
func (r *AttendanceRepository) CountWindow(ctx context.Context, from, to time.Time) (total int, present int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE present) AS present
        FROM attendance WHERE date >= $1 AND date < $2`
	row := struct {
		Total   int `db:"total"`
		Present int `db:"present"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, from, to); err != nil {
		return 0, 0, fmt.Errorf("count attendance window: %w", err)
	}
	return row.Total, row.Present, nil
}
