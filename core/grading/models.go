package grading

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
)

// EvaluationComponent is an institution-scoped classification key for
// activities and plan weights (e.g. "quizzes", "final exam"). Components may be
// nested; only the leaf a weight points at matters for aggregation.
type EvaluationComponent struct {
	ID            string      `json:"id" db:"id"`
	InstitutionID string      `json:"institution_id" db:"institution_id"`
	ParentID      null.String `json:"parent_id" db:"parent_id"`
	Code          string      `json:"code" db:"code"`
	Name          string      `json:"name" db:"name"`
}

// ComponentWeight is one entry of an evaluation plan.
type ComponentWeight struct {
	ComponentID string  `json:"component_id" db:"component_id" validate:"required"`
	Percentage  float64 `json:"percentage" db:"percentage" validate:"percent"`
}

// EvaluationPlan holds the component weights governing one subject's term
// grade, owned by exactly one (teaching assignment, term) pair.
type EvaluationPlan struct {
	ID                  string            `json:"id" db:"id"`
	TeacherAssignmentID string            `json:"teacher_assignment_id" db:"teacher_assignment_id"`
	AcademicTermID      string            `json:"academic_term_id" db:"academic_term_id"`
	Weights             []ComponentWeight `json:"components" db:"-"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"` // UTC
	UpdatedAt           time.Time         `json:"updated_at" db:"updated_at"` // UTC
}

// EvaluativeActivity is a gradable piece of work filed under one plan
// component. DueDate is only used for point-in-time filtering.
type EvaluativeActivity struct {
	ID                  string    `json:"id" db:"id"`
	TeacherAssignmentID string    `json:"teacher_assignment_id" db:"teacher_assignment_id"`
	AcademicTermID      string    `json:"academic_term_id" db:"academic_term_id"`
	PlanID              string    `json:"plan_id" db:"plan_id"`
	ComponentID         string    `json:"component_id" db:"component_id"`
	Name                string    `json:"name" db:"name"`
	DueDate             null.Time `json:"due_date" db:"due_date"`
}

// StudentGrade is a score for exactly one (enrollment, activity) pair.
// Re-saving the same pair overwrites, never duplicates.
type StudentGrade struct {
	ID           string      `json:"id" db:"id"`
	EnrollmentID string      `json:"student_enrollment_id" db:"enrollment_id"`
	ActivityID   string      `json:"evaluative_activity_id" db:"activity_id"`
	Score        float64     `json:"score" db:"score"`
	Observations null.String `json:"observations" db:"observations"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// ScaleLevel is one row of an institution's performance scale: a qualitative
// label bound to an inclusive [MinScore, MaxScore] band.
type ScaleLevel struct {
	ID            string  `json:"id" db:"id"`
	InstitutionID string  `json:"institution_id" db:"institution_id"`
	Level         string  `json:"level" db:"level"`
	MinScore      float64 `json:"min_score" db:"min_score"`
	MaxScore      float64 `json:"max_score" db:"max_score"`
}

// NewGrade contains information needed to record or overwrite a single score.
type NewGrade struct {
	EnrollmentID string  `json:"student_enrollment_id" validate:"required"`
	ActivityID   string  `json:"evaluative_activity_id" validate:"required"`
	Score        float64 `json:"score" validate:"score"`
	Observations string  `json:"observations"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.EnrollmentID = core.CleanString(ng.EnrollmentID)
	ng.ActivityID = core.CleanString(ng.ActivityID)
	ng.Observations = core.CleanString(ng.Observations)
	return validate.Struct(ng)
}

// BulkGradeItem is one row of a bulk submission for a single activity.
// Rows are checked individually by the service so one bad row cannot fail
// the whole request.
type BulkGradeItem struct {
	EnrollmentID string  `json:"student_enrollment_id"`
	Score        float64 `json:"score"`
	Observations string  `json:"observations"`
}

type BulkGrades struct {
	Grades []BulkGradeItem `json:"grades" validate:"required,min=1"`
}

func (bg *BulkGrades) Validate(validate *validator.Validate) error {
	return validate.Struct(bg)
}

// BulkGradeResult reports the outcome of one bulk row, in input order.
// Rows are upserted independently: a failed row never aborts its siblings.
type BulkGradeResult struct {
	Index int           `json:"index"`
	Grade *StudentGrade `json:"grade,omitempty"`
	Error string        `json:"error,omitempty"`
}

// NewPlan contains information needed to create or replace an evaluation plan.
type NewPlan struct {
	TeacherAssignmentID string            `json:"teacher_assignment_id" validate:"required"`
	AcademicTermID      string            `json:"academic_term_id" validate:"required"`
	Weights             []ComponentWeight `json:"components" validate:"required,min=1,dive"`
}

func (np *NewPlan) Validate(validate *validator.Validate) error {
	np.TeacherAssignmentID = core.CleanString(np.TeacherAssignmentID)
	np.AcademicTermID = core.CleanString(np.AcademicTermID)
	return validate.Struct(np)
}

// ComponentGrade is the per-component line of a term grade breakdown.
type ComponentGrade struct {
	ComponentID   string       `json:"component_id"`
	ComponentName string       `json:"component_name"`
	Average       null.Float64 `json:"average"`
	Percentage    float64      `json:"percentage"`
}

// TermGradeResult is one student/subject/term grade with its audit breakdown.
// Grade is null when no plan exists or no component has grades yet.
type TermGradeResult struct {
	Grade      null.Float64     `json:"grade"`
	Components []ComponentGrade `json:"components"`
}

// TermBreakdown is the per-term line of an annual grade breakdown.
type TermBreakdown struct {
	AcademicTermID   string       `json:"academic_term_id"`
	TermName         string       `json:"term_name"`
	Order            int          `json:"order"`
	Grade            null.Float64 `json:"grade"`
	WeightPercentage float64      `json:"weight_percentage"`
}

type AnnualGradeResult struct {
	AnnualGrade null.Float64    `json:"annual_grade"`
	Terms       []TermBreakdown `json:"terms"`
}

// LevelResult is a resolved performance level along with the rounded score
// that was used for the band lookup.
type LevelResult struct {
	Level string  `json:"level"`
	Score float64 `json:"score"`
}
