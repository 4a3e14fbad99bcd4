package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter, joined with their grade and
// sorted by grade year, grade name, then student name. Name ordering is
// refined in the service layer, which applies the numeric-aware comparison
// the database collation cannot express.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	base := `FROM students s JOIN grades g ON g.id = s.grade_id`
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.GradeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_id = $%d", len(args)+1))
		args = append(args, filter.GradeID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf(`SELECT s.id, s.code, s.name, s.grade_id, s.created_at, s.updated_at,
        g.name AS grade_name, g.year AS grade_year
        %s WHERE %s ORDER BY g.year, g.name, s.name`, base, strings.Join(conditions, " AND "))

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.code, s.name, s.grade_id, s.created_at, s.updated_at,
        g.name AS grade_name, g.year AS grade_year
        FROM students s JOIN grades g ON g.id = s.grade_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByCode fetches a student detail by the scanned card code. Returns
// sql.ErrNoRows for unknown codes.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.code, s.name, s.grade_id, s.created_at, s.updated_at,
        g.name AS grade_name, g.year AS grade_year
        FROM students s JOIN grades g ON g.id = s.grade_id
        WHERE s.code = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, code); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountByGrade returns how many students already belong to a grade. Used to
// derive the next sequential code suffix.
func (r *StudentRepository) CountByGrade(ctx context.Context, gradeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE grade_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, gradeID); err != nil {
		return 0, fmt.Errorf("count students by grade: %w", err)
	}
	return count, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, code, name, grade_id, created_at, updated_at)
        VALUES (:id, :code, :name, :grade_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites a student's mutable fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, grade_id = :grade_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student. Attendance and canteen rows cascade via
// foreign keys.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the total student population.
func (r *StudentRepository) CountAll(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM students`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
