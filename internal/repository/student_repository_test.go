package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
)

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "name", "grade_id", "created_at", "updated_at", "grade_name", "grade_year"}).
		AddRow("stu-1", "DENIM001", "Aisyah", "grade-1", now, now, "DENIM", 3)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s JOIN grades g ON g.id = s.grade_id WHERE 1=1 ORDER BY g.year, g.name, s.name")).
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "DENIM", students[0].GradeName)
	assert.Equal(t, 3, students[0].GradeYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListSearchFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "grade_id", "created_at", "updated_at", "grade_name", "grade_year"})
	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(s.name) LIKE $1 OR LOWER(s.code) LIKE $1)")).
		WithArgs("%ali%").
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{Search: "Ali"})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "name", "grade_id", "created_at", "updated_at", "grade_name", "grade_year"}).
		AddRow("stu-1", "DENIM001", "Aisyah", "grade-1", now, now, "DENIM", 3)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.code = $1")).
		WithArgs("DENIM001").
		WillReturnRows(rows)

	student, err := repo.FindByCode(context.Background(), "DENIM001")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByCodeUnknown(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.code = $1")).
		WithArgs("NOPE999").
		WillReturnError(sql.ErrNoRows)

	student, err := repo.FindByCode(context.Background(), "NOPE999")
	assert.Nil(t, student)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountByGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE grade_id = $1")).
		WithArgs("grade-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByGrade(context.Background(), "grade-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Code: "DENIM008", Name: "Hana", GradeID: "grade-1"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
