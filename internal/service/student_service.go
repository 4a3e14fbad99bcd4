package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	appErrors "github.com/stpp-dev/rekod-sekolah-api/pkg/errors"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/natsort"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByCode(ctx context.Context, code string) (*models.StudentDetail, error)
	CountByGrade(ctx context.Context, gradeID string) (int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type gradeRepository interface {
	List(ctx context.Context) ([]models.Grade, error)
	FindByNameYear(ctx context.Context, name string, year int) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
}

// StudentService manages the roster: pupils, their grades, and the
// server-assigned card codes.
type StudentService struct {
	students  studentRepository
	grades    gradeRepository
	validator *validator.Validate
	logger    *zap.Logger

	// gradeMu serialises lazy grade creation per (name, year) key so two
	// concurrent registrations cannot create duplicate grades.
	gradeMu sync.Map
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepository, grades gradeRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{students: students, grades: grades, validator: validate, logger: logger}
}

// List returns the roster in display order: grade year ascending, grade
// name, then student name with numeric-aware comparison.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list students")
	}
	SortRoster(students)
	return students, nil
}

// Get fetches one student with grade attributes.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load student")
	}
	return student, nil
}

// Grades lists all known grades.
func (s *StudentService) Grades(ctx context.Context) ([]models.Grade, error) {
	grades, err := s.grades.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list grades")
	}
	return grades, nil
}

// Create registers a student, creating the grade on first use and assigning
// the next sequential code within the grade.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	grade, err := s.ensureGrade(ctx, req.GradeName, req.GradeYear)
	if err != nil {
		return nil, err
	}

	code, err := s.nextCode(ctx, grade)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Code:    code,
		Name:    strings.TrimSpace(req.Name),
		GradeID: grade.ID,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create student")
	}

	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("code", student.Code),
		zap.String("grade", grade.Name),
		zap.Int("year", grade.Year))

	return &models.StudentDetail{Student: *student, GradeName: grade.Name, GradeYear: grade.Year}, nil
}

// Update renames or moves a student. The code stays stable.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	grade, err := s.ensureGrade(ctx, req.GradeName, req.GradeYear)
	if err != nil {
		return nil, err
	}

	updated := existing.Student
	updated.Name = strings.TrimSpace(req.Name)
	updated.GradeID = grade.ID
	if err := s.students.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update student")
	}

	return &models.StudentDetail{Student: updated, GradeName: grade.Name, GradeYear: grade.Year}, nil
}

// Delete removes a student and, via cascade, its daily records.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.students.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete student")
	}
	return nil
}

// ensureGrade returns the grade for (name, year), creating it when missing.
func (s *StudentService) ensureGrade(ctx context.Context, name string, year int) (*models.Grade, error) {
	name = strings.TrimSpace(name)

	key := fmt.Sprintf("%s|%d", strings.ToUpper(name), year)
	muValue, _ := s.gradeMu.LoadOrStore(key, &sync.Mutex{})
	mu := muValue.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	grade, err := s.grades.FindByNameYear(ctx, name, year)
	if err == nil {
		return grade, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to look up grade")
	}

	grade = &models.Grade{Name: name, Year: year}
	if err := s.grades.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create grade")
	}
	s.logger.Info("grade created", zap.String("grade", name), zap.Int("year", year))
	return grade, nil
}

// nextCode derives the grade-scoped card code: the grade name uppercased
// with spaces removed, then a three-digit sequence.
func (s *StudentService) nextCode(ctx context.Context, grade *models.Grade) (string, error) {
	count, err := s.students.CountByGrade(ctx, grade.ID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count grade members")
	}
	prefix := strings.ToUpper(strings.ReplaceAll(grade.Name, " ", ""))
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// SortRoster orders students in place by grade year, grade name, then
// numeric-aware student name.
func SortRoster(students []models.StudentDetail) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.GradeYear != b.GradeYear {
			return a.GradeYear < b.GradeYear
		}
		if c := natsort.Compare(a.GradeName, b.GradeName); c != 0 {
			return c < 0
		}
		return natsort.Less(a.Name, b.Name)
	})
}
