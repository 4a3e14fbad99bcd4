package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// GradeRepository manages the grades dimension table.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns all grades ordered for selector display.
func (r *GradeRepository) List(ctx context.Context) ([]models.Grade, error) {
	const query = `SELECT id, name, year, created_at, updated_at FROM grades ORDER BY year, name`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// FindByID fetches one grade.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	const query = `SELECT id, name, year, created_at, updated_at FROM grades WHERE id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// FindByNameYear looks up a grade by its exact natural key. Returns
// sql.ErrNoRows when absent so callers can lazily create it.
func (r *GradeRepository) FindByNameYear(ctx context.Context, name string, year int) (*models.Grade, error) {
	const query = `SELECT id, name, year, created_at, updated_at FROM grades WHERE name = $1 AND year = $2
        ORDER BY created_at LIMIT 1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, name, year); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create inserts a new grade row.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, name, year, created_at, updated_at)
        VALUES (:id, :name, :year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}
