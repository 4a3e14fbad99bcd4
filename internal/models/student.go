package models

import "time"

// Grade is a class dimension row, e.g. name "DENIM", year 3. Created lazily
// the first time a student is registered into it.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Student is a pupil enrolled in exactly one grade. Code is the
// human-readable card identifier, unique within the grade's namespace.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	GradeID   string    `db:"grade_id" json:"grade_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins a student with its grade attributes.
type StudentDetail struct {
	Student
	GradeName string `db:"grade_name" json:"grade_name"`
	GradeYear int    `db:"grade_year" json:"grade_year"`
}

// StudentFilter scopes roster queries.
type StudentFilter struct {
	GradeID string
	Search  string
}

// CreateStudentRequest registers a pupil. The grade is referenced by its
// natural key and created on first use; the code is assigned server-side.
type CreateStudentRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	GradeName string `json:"grade_name" validate:"required,min=1,max=60"`
	GradeYear int    `json:"grade_year" validate:"required,min=1,max=6"`
}

// UpdateStudentRequest renames or moves a pupil. The assigned code never
// changes, even across grade moves.
type UpdateStudentRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	GradeName string `json:"grade_name" validate:"required,min=1,max=60"`
	GradeYear int    `json:"grade_year" validate:"required,min=1,max=6"`
}
