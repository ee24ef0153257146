package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/escolaris/notas/core/academic"
)

type AcademicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*AcademicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

func (repo *AcademicRepository) GetYearByID(ctx context.Context, id string) (academic.AcademicYear, error) {
	var year academic.AcademicYear
	err := repo.db.GetContext(ctx, &year,
		`SELECT id, institution_id, year FROM academic_year WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academic.AcademicYear{}, academic.ErrYearNotFound
	}
	return year, dbErr(err)
}

func (repo *AcademicRepository) GetTermByID(ctx context.Context, id string) (academic.AcademicTerm, error) {
	var term academic.AcademicTerm
	err := repo.db.GetContext(ctx, &term,
		`SELECT id, academic_year_id, name, term_order, weight_percentage, kind
		 FROM academic_term WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academic.AcademicTerm{}, academic.ErrTermNotFound
	}
	return term, dbErr(err)
}

func (repo *AcademicRepository) QueryTermsByYear(ctx context.Context, yearID string) ([]academic.AcademicTerm, error) {
	terms := make([]academic.AcademicTerm, 0)
	err := repo.db.SelectContext(ctx, &terms,
		`SELECT id, academic_year_id, name, term_order, weight_percentage, kind
		 FROM academic_term WHERE academic_year_id = $1
		 ORDER BY term_order`, yearID)
	return terms, dbErr(err)
}

func (repo *AcademicRepository) GetAssignmentByID(ctx context.Context, id string) (academic.TeacherAssignment, error) {
	var ta academic.TeacherAssignment
	err := repo.db.GetContext(ctx, &ta,
		`SELECT id, teacher_id, teacher_email, subject_id, subject_name, group_id, academic_year_id
		 FROM teacher_assignment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academic.TeacherAssignment{}, academic.ErrAssignmentNotFound
	}
	return ta, dbErr(err)
}

func (repo *AcademicRepository) QueryActiveEnrollments(ctx context.Context, groupID, yearID string) ([]academic.Enrollment, error) {
	enrollments := make([]academic.Enrollment, 0)
	err := repo.db.SelectContext(ctx, &enrollments,
		`SELECT id, student_id, student_first_name, student_last_name, group_id, academic_year_id, status
		 FROM enrollment
		 WHERE group_id = $1 AND academic_year_id = $2 AND status = $3
		 ORDER BY student_last_name, student_first_name, id`,
		groupID, yearID, academic.EnrollmentActive)
	return enrollments, dbErr(err)
}
