package alert

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
)

// Alert statuses. IN_RECOVERY is only ever set by a human and is sticky
// against automatic recomputes; the engine itself only derives OPEN/RESOLVED.
const (
	StatusOpen       = "OPEN"
	StatusInRecovery = "IN_RECOVERY"
	StatusResolved   = "RESOLVED"
)

var statuses = []string{StatusOpen, StatusInRecovery, StatusResolved}

func IsValidStatus(s string) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// CutConfig holds the stored cutoff date and risk threshold of one term.
type CutConfig struct {
	AcademicTermID string    `json:"academic_term_id" db:"academic_term_id"`
	CutoffDate     time.Time `json:"cutoff_date" db:"cutoff_date"`
	RiskThreshold  float64   `json:"risk_threshold" db:"risk_threshold"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Alert is the persisted risk record of one (assignment, enrollment, term).
// Grade, level, cutoff and (except for the IN_RECOVERY rule) status are owned
// by the engine; recovery plan, meeting and notes are owned by humans and are
// never touched by a recompute.
type Alert struct {
	ID                  string       `json:"id" db:"id"`
	TeacherAssignmentID string       `json:"teacher_assignment_id" db:"teacher_assignment_id"`
	EnrollmentID        string       `json:"student_enrollment_id" db:"enrollment_id"`
	AcademicTermID      string       `json:"academic_term_id" db:"academic_term_id"`
	StudentName         string       `json:"student_name" db:"student_name"`
	LastGrade           null.Float64 `json:"last_grade" db:"last_grade"`
	Level               null.String  `json:"level" db:"level"`
	CutoffDate          time.Time    `json:"cutoff_date" db:"cutoff_date"`
	Status              string       `json:"status" db:"status"`
	RecoveryPlan        null.String  `json:"recovery_plan" db:"recovery_plan"`
	MeetingAt           null.Time    `json:"meeting_at" db:"meeting_at"`
	Notes               null.String  `json:"notes" db:"notes"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"` // UTC
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"` // UTC
}

func (a Alert) IsAtRisk() bool { return a.Status == StatusOpen || a.Status == StatusInRecovery }

// NewCutConfig contains information needed to store a term's cut parameters.
type NewCutConfig struct {
	AcademicTermID string    `json:"academic_term_id" validate:"required"`
	CutoffDate     time.Time `json:"cutoff_date" validate:"required"`
	RiskThreshold  float64   `json:"risk_threshold" validate:"score"`
}

func (nc *NewCutConfig) Validate(validate *validator.Validate) error {
	nc.AcademicTermID = core.CleanString(nc.AcademicTermID)
	return validate.Struct(nc)
}

// ExecuteCutRequest names the assignment and term to evaluate; CutoffDate
// overrides the stored config's cutoff when set.
type ExecuteCutRequest struct {
	TeacherAssignmentID string     `json:"teacher_assignment_id" validate:"required"`
	AcademicTermID      string     `json:"academic_term_id" validate:"required"`
	CutoffDate          *time.Time `json:"cutoff_date"`
}

func (ec *ExecuteCutRequest) Validate(validate *validator.Validate) error {
	ec.TeacherAssignmentID = core.CleanString(ec.TeacherAssignmentID)
	ec.AcademicTermID = core.CleanString(ec.AcademicTermID)
	return validate.Struct(ec)
}

// UpdateAlert defines what a human may modify on an existing alert.
// Nil fields are left untouched.
type UpdateAlert struct {
	Status       *string    `json:"status"`
	RecoveryPlan *string    `json:"recovery_plan"`
	MeetingAt    *time.Time `json:"meeting_at"`
	Notes        *string    `json:"notes"`
}

func (ua *UpdateAlert) Validate() error {
	if ua.Status != nil && !IsValidStatus(*ua.Status) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "must be one of OPEN, IN_RECOVERY, RESOLVED",
		})
	}
	return nil
}

// CutSummary is the outcome of one preventive cut execution.
type CutSummary struct {
	CutoffDate    time.Time `json:"cutoff_date"`
	Threshold     float64   `json:"threshold"`
	TotalStudents int       `json:"total_students"`
	AtRisk        int       `json:"at_risk"`
	Alerts        []Alert   `json:"alerts"`
}

// QueryFilter applies AND on its non-empty fields.
type QueryFilter struct {
	TeacherAssignmentID string `query:"assignment"`
	AcademicTermID      string `query:"term"`
	EnrollmentID        string `query:"enrollment"`
	Status              string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherAssignmentID == "" && qf.AcademicTermID == "" && qf.EnrollmentID == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.TeacherAssignmentID = core.CleanString(qf.TeacherAssignmentID)
	qf.AcademicTermID = core.CleanString(qf.AcademicTermID)
	qf.EnrollmentID = core.CleanString(qf.EnrollmentID)
	qf.Status = core.CleanString(qf.Status)
}
