package academic

import "strings"

// Term kinds
const (
	TermOrdinary = "ordinary" // regular grading period
	TermExam     = "exam"     // semester/final exam period
)

// Enrollment statuses
const (
	EnrollmentActive   = "ACTIVE"
	EnrollmentInactive = "INACTIVE"
)

type AcademicYear struct {
	ID            string `json:"id" db:"id"`
	InstitutionID string `json:"institution_id" db:"institution_id"`
	Year          int    `json:"year" db:"year"`
}

type AcademicTerm struct {
	ID               string  `json:"id" db:"id"`
	AcademicYearID   string  `json:"academic_year_id" db:"academic_year_id"`
	Name             string  `json:"name" db:"name"`
	Order            int     `json:"order" db:"term_order"`
	WeightPercentage float64 `json:"weight_percentage" db:"weight_percentage"`
	Kind             string  `json:"kind" db:"kind"`
}

// Enrollment is a read-only projection of a student's enrollment as supplied by
// the enrollment collaborator. The student name fields are denormalized so risk
// evaluation can be ordered and reported without a student lookup.
type Enrollment struct {
	ID               string `json:"id" db:"id"`
	StudentID        string `json:"student_id" db:"student_id"`
	StudentFirstName string `json:"student_first_name" db:"student_first_name"`
	StudentLastName  string `json:"student_last_name" db:"student_last_name"`
	GroupID          string `json:"group_id" db:"group_id"`
	AcademicYearID   string `json:"academic_year_id" db:"academic_year_id"`
	Status           string `json:"status" db:"status"`
}

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentActive }

func (e Enrollment) StudentName() string {
	return strings.TrimSpace(e.StudentLastName + ", " + e.StudentFirstName)
}

// TeacherAssignment binds a teacher to a (subject, group, year); grading plans,
// activities and preventive cuts all hang off one of these.
type TeacherAssignment struct {
	ID             string `json:"id" db:"id"`
	TeacherID      string `json:"teacher_id" db:"teacher_id"`
	TeacherEmail   string `json:"teacher_email" db:"teacher_email"`
	SubjectID      string `json:"subject_id" db:"subject_id"`
	SubjectName    string `json:"subject_name" db:"subject_name"`
	GroupID        string `json:"group_id" db:"group_id"`
	AcademicYearID string `json:"academic_year_id" db:"academic_year_id"`
}

// TermWeightCheck reports whether the term weights of an academic year add up
// to 100. The check is advisory: it is run on demand, never enforced on write.
type TermWeightCheck struct {
	Valid bool    `json:"valid"`
	Total float64 `json:"total"`
}
