package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// CanteenRepository manages daily lunch distribution rows.
type CanteenRepository struct {
	db *sqlx.DB
}

// NewCanteenRepository constructs a CanteenRepository.
func NewCanteenRepository(db *sqlx.DB) *CanteenRepository {
	return &CanteenRepository{db: db}
}

// ListWindow returns all canteen rows whose date falls inside [from, to).
func (r *CanteenRepository) ListWindow(ctx context.Context, from, to time.Time) ([]models.CanteenRecord, error) {
	const query = `SELECT id, student_id, date, day, lunch_received, created_at, updated_at
        FROM canteen WHERE date >= $1 AND date < $2 ORDER BY created_at`
	var records []models.CanteenRecord
	if err := r.db.SelectContext(ctx, &records, query, from, to); err != nil {
		return nil, fmt.Errorf("list canteen window: %w", err)
	}
	return records, nil
}

// FindWindowByStudent returns the student's canteen row inside [from, to),
// earliest-created first. Returns sql.ErrNoRows when absent.
func (r *CanteenRepository) FindWindowByStudent(ctx context.Context, studentID string, from, to time.Time) (*models.CanteenRecord, error) {
	const query = `SELECT id, student_id, date, day, lunch_received, created_at, updated_at
        FROM canteen WHERE student_id = $1 AND date >= $2 AND date < $3
        ORDER BY created_at LIMIT 1`
	var record models.CanteenRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, from, to); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert inserts the record or updates the lunch flag when a row for
// (student_id, day) already exists.
func (r *CanteenRepository) Upsert(ctx context.Context, record *models.CanteenRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO canteen (id, student_id, date, day, lunch_received, created_at, updated_at)
        VALUES (:id, :student_id, :date, :day, :lunch_received, :created_at, :updated_at)
        ON CONFLICT (student_id, day) DO UPDATE SET lunch_received = EXCLUDED.lunch_received, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert canteen: %w", err)
	}
	return nil
}

// ListReceivedWithStudents returns every lunch handed out inside [from, to),
// expanded with student and grade attributes for invoice line building.
// Rows follow the roster order: grade year, grade name, student name.
func (r *CanteenRepository) ListReceivedWithStudents(ctx context.Context, from, to time.Time) ([]models.CanteenStudentRow, error) {
	const query = `SELECT c.id, c.student_id, c.date, c.day, c.lunch_received, c.created_at, c.updated_at,
        s.code AS student_code, s.name AS student_name, g.name AS grade_name, g.year AS grade_year
        FROM canteen c
        JOIN students s ON s.id = c.student_id
        JOIN grades g ON g.id = s.grade_id
        WHERE c.date >= $1 AND c.date < $2 AND c.lunch_received
        ORDER BY g.year, g.name, s.name`
	var rows []models.CanteenStudentRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list canteen received: %w", err)
	}
	return rows, nil
}
