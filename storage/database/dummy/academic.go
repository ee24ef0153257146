package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/escolaris/notas/core/academic"
)

type AcademicRepository struct {
	db *academicTables
}

var _ academic.Repository = (*AcademicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) *AcademicRepository {
	return &AcademicRepository{db: db.academic}
}

// Seed helpers: collaborator data is read-only for the services, so tests and
// fixtures load it through these.

func (repo *AcademicRepository) AddYear(year academic.AcademicYear) academic.AcademicYear {
	repo.db.Lock()
	defer repo.db.Unlock()

	if year.ID == "" {
		year.ID = uuid.New().String()
	}
	repo.db.years[year.ID] = &year
	return year
}

func (repo *AcademicRepository) AddTerm(term academic.AcademicTerm) academic.AcademicTerm {
	repo.db.Lock()
	defer repo.db.Unlock()

	if term.ID == "" {
		term.ID = uuid.New().String()
	}
	repo.db.terms[term.ID] = &term
	return term
}

func (repo *AcademicRepository) AddAssignment(ta academic.TeacherAssignment) academic.TeacherAssignment {
	repo.db.Lock()
	defer repo.db.Unlock()

	if ta.ID == "" {
		ta.ID = uuid.New().String()
	}
	repo.db.assignments[ta.ID] = &ta
	return ta
}

func (repo *AcademicRepository) AddEnrollment(enr academic.Enrollment) academic.Enrollment {
	repo.db.Lock()
	defer repo.db.Unlock()

	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr
}

// academic.Repository

func (repo *AcademicRepository) GetYearByID(ctx context.Context, id string) (academic.AcademicYear, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if year, ok := repo.db.years[id]; ok {
		return *year, nil
	}
	return academic.AcademicYear{}, academic.ErrYearNotFound
}

func (repo *AcademicRepository) GetTermByID(ctx context.Context, id string) (academic.AcademicTerm, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if term, ok := repo.db.terms[id]; ok {
		return *term, nil
	}
	return academic.AcademicTerm{}, academic.ErrTermNotFound
}

func (repo *AcademicRepository) QueryTermsByYear(ctx context.Context, yearID string) ([]academic.AcademicTerm, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var terms []academic.AcademicTerm
	for _, term := range repo.db.terms {
		if term.AcademicYearID == yearID {
			terms = append(terms, *term)
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Order < terms[j].Order })
	return terms, nil
}

func (repo *AcademicRepository) GetAssignmentByID(ctx context.Context, id string) (academic.TeacherAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ta, ok := repo.db.assignments[id]; ok {
		return *ta, nil
	}
	return academic.TeacherAssignment{}, academic.ErrAssignmentNotFound
}

func (repo *AcademicRepository) QueryActiveEnrollments(ctx context.Context, groupID, yearID string) ([]academic.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []academic.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.GroupID == groupID && enr.AcademicYearID == yearID && enr.IsActive() {
			enrollments = append(enrollments, *enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		a, b := enrollments[i], enrollments[j]
		if a.StudentLastName != b.StudentLastName {
			return a.StudentLastName < b.StudentLastName
		}
		if a.StudentFirstName != b.StudentFirstName {
			return a.StudentFirstName < b.StudentFirstName
		}
		return a.ID < b.ID
	})
	return enrollments, nil
}
