package alert

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/core/grading"
)

var (
	// errors
	ErrNotFound       = errors.New("alert not found")
	ErrConfigNotFound = errors.New("preventive cut config not found")
)

// DefaultRiskThreshold is used when a cut runs with an override cutoff date and
// no stored config exists for the term. 3.0 is the institutional passing score.
const DefaultRiskThreshold = 3.0

type (
	Repository interface {
		GetConfig(ctx context.Context, termID string) (CutConfig, error)
		UpsertConfig(ctx context.Context, cfg CutConfig) (CutConfig, error)
		// GetAlert looks up the alert keyed by the unique
		// (assignment, enrollment, term) triple.
		GetAlert(ctx context.Context, assignmentID, enrollmentID, termID string) (Alert, error)
		GetAlertByID(ctx context.Context, id string) (Alert, error)
		// UpsertAlert inserts or overwrites the alert keyed by its triple.
		UpsertAlert(ctx context.Context, alert Alert) (Alert, error)
		UpdateAlert(ctx context.Context, alert Alert) (Alert, error)
		// FilterAlerts applies AND operation on available QueryFilter fields.
		FilterAlerts(ctx context.Context, filter QueryFilter) ([]Alert, error)
	}

	// GradeCalculator is the slice of the grading service the engine needs.
	GradeCalculator interface {
		TermGrade(ctx context.Context, enrollmentID, assignmentID, termID string, cutoff *time.Time) (grading.TermGradeResult, error)
		ResolveLevel(ctx context.Context, institutionID string, score float64) (*grading.LevelResult, error)
	}

	Service struct {
		repo         Repository
		academicRepo academic.Repository
		grades       GradeCalculator
		mailSvc      core.EmailService
		logger       core.Logger
	}
)

func NewService(
	repo Repository,
	academicRepo academic.Repository,
	grades GradeCalculator,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:         repo,
		academicRepo: academicRepo,
		grades:       grades,
		mailSvc:      mailSvc,
		logger:       logger,
	}
}

func (svc *Service) UpsertConfig(ctx context.Context, nc NewCutConfig) (CutConfig, error) {
	if _, err := svc.academicRepo.GetTermByID(ctx, nc.AcademicTermID); err != nil {
		if err == academic.ErrTermNotFound {
			return CutConfig{}, core.NewValidationError(err, core.FieldError{Field: "academic_term_id", Error: err.Error()})
		}
		return CutConfig{}, err
	}

	now := time.Now().UTC()
	return svc.repo.UpsertConfig(ctx, CutConfig{
		AcademicTermID: nc.AcademicTermID,
		CutoffDate:     nc.CutoffDate.UTC(),
		RiskThreshold:  nc.RiskThreshold,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) GetConfig(ctx context.Context, termID string) (CutConfig, error) {
	return svc.repo.GetConfig(ctx, termID)
}

// ExecuteCut evaluates every active enrollment of the assignment's group as of
// a cutoff date and reconciles each result into its persisted alert.
// Executions with identical inputs are idempotent: the per-triple upsert means
// the last write wins and no duplicate rows can appear.
func (svc *Service) ExecuteCut(ctx context.Context, req ExecuteCutRequest) (CutSummary, error) {
	assignment, err := svc.academicRepo.GetAssignmentByID(ctx, req.TeacherAssignmentID)
	if err != nil {
		return CutSummary{}, err
	}
	term, err := svc.academicRepo.GetTermByID(ctx, req.AcademicTermID)
	if err != nil {
		return CutSummary{}, err
	}
	year, err := svc.academicRepo.GetYearByID(ctx, assignment.AcademicYearID)
	if err != nil {
		return CutSummary{}, err
	}

	cutoff, threshold, err := svc.resolveCut(ctx, term.ID, req.CutoffDate)
	if err != nil {
		return CutSummary{}, err
	}

	enrollments, err := svc.academicRepo.QueryActiveEnrollments(ctx, assignment.GroupID, assignment.AcademicYearID)
	if err != nil {
		return CutSummary{}, err
	}

	summary := CutSummary{
		CutoffDate: cutoff,
		Threshold:  threshold,
		Alerts:     make([]Alert, 0, len(enrollments)),
	}
	var newlyOpened []Alert

	for _, enr := range enrollments {
		tg, err := svc.grades.TermGrade(ctx, enr.ID, assignment.ID, term.ID, &cutoff)
		if err != nil {
			return CutSummary{}, err
		}

		atRisk := !tg.Grade.Valid || tg.Grade.Float64 < threshold

		var level null.String
		if tg.Grade.Valid {
			lvl, err := svc.grades.ResolveLevel(ctx, year.InstitutionID, tg.Grade.Float64)
			if err != nil {
				return CutSummary{}, err
			}
			if lvl != nil {
				level = null.StringFrom(lvl.Level)
			}
		}

		saved, wasOpened, err := svc.reconcile(ctx, assignment.ID, term.ID, enr, tg.Grade, level, cutoff, atRisk)
		if err != nil {
			return CutSummary{}, err
		}

		summary.Alerts = append(summary.Alerts, saved)
		summary.TotalStudents++
		if atRisk {
			summary.AtRisk++
		}
		if wasOpened {
			newlyOpened = append(newlyOpened, saved)
		}
	}

	if len(newlyOpened) > 0 {
		svc.notifyTeacher(assignment, term, summary, newlyOpened)
	}
	return summary, nil
}

// resolveCut resolves the cutoff date and risk threshold: an explicit override
// date wins over the stored config; with neither the cut cannot run.
func (svc *Service) resolveCut(ctx context.Context, termID string, override *time.Time) (time.Time, float64, error) {
	cfg, err := svc.repo.GetConfig(ctx, termID)
	switch err {
	case nil:
		cutoff := cfg.CutoffDate
		if override != nil {
			cutoff = override.UTC()
		}
		return cutoff, cfg.RiskThreshold, nil
	case ErrConfigNotFound:
		if override == nil {
			return time.Time{}, 0, core.NewValidationError(err, core.FieldError{
				Field: "cutoff_date",
				Error: "no preventive cut config for this term and no cutoff date provided",
			})
		}
		return override.UTC(), DefaultRiskThreshold, nil
	default:
		return time.Time{}, 0, err
	}
}

// reconcile merges an automatic risk result into the persisted alert without
// disturbing human-managed fields. A pre-existing IN_RECOVERY status always
// survives the recompute.
func (svc *Service) reconcile(
	ctx context.Context,
	assignmentID, termID string,
	enr academic.Enrollment,
	grade null.Float64,
	level null.String,
	cutoff time.Time,
	atRisk bool,
) (Alert, bool, error) {
	status := StatusResolved
	if atRisk {
		status = StatusOpen
	}

	now := time.Now().UTC()
	existing, err := svc.repo.GetAlert(ctx, assignmentID, enr.ID, termID)
	switch err {
	case nil:
		if existing.Status == StatusInRecovery {
			status = StatusInRecovery
		}
		wasOpened := status == StatusOpen && existing.Status != StatusOpen

		existing.StudentName = enr.StudentName()
		existing.LastGrade = grade
		existing.Level = level
		existing.CutoffDate = cutoff
		existing.Status = status
		existing.UpdatedAt = now

		saved, err := svc.repo.UpsertAlert(ctx, existing)
		return saved, wasOpened, err
	case ErrNotFound:
		saved, err := svc.repo.UpsertAlert(ctx, Alert{
			TeacherAssignmentID: assignmentID,
			EnrollmentID:        enr.ID,
			AcademicTermID:      termID,
			StudentName:         enr.StudentName(),
			LastGrade:           grade,
			Level:               level,
			CutoffDate:          cutoff,
			Status:              status,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		return saved, status == StatusOpen, err
	default:
		return Alert{}, false, err
	}
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Alert, error) {
	filter.Clean()
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "must be one of OPEN, IN_RECOVERY, RESOLVED",
		})
	}
	return svc.repo.FilterAlerts(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Alert, error) {
	return svc.repo.GetAlertByID(ctx, id)
}

// Update applies a human edit. Any status transition is allowed here; only the
// automatic recompute is constrained by the IN_RECOVERY rule.
func (svc *Service) Update(ctx context.Context, id string, ua UpdateAlert) (Alert, error) {
	alert, err := svc.repo.GetAlertByID(ctx, id)
	if err != nil {
		return Alert{}, err
	}

	if ua.Status != nil {
		alert.Status = *ua.Status
	}
	if ua.RecoveryPlan != nil {
		alert.RecoveryPlan = null.NewString(*ua.RecoveryPlan, *ua.RecoveryPlan != "")
	}
	if ua.MeetingAt != nil {
		alert.MeetingAt = null.TimeFrom(ua.MeetingAt.UTC())
	}
	if ua.Notes != nil {
		alert.Notes = null.NewString(*ua.Notes, *ua.Notes != "")
	}
	alert.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateAlert(ctx, alert)
}

// notifyTeacher emails the assignment's teacher about newly opened alerts.
// Fire-and-forget: the cut result does not depend on the email going out.
func (svc *Service) notifyTeacher(assignment academic.TeacherAssignment, term academic.AcademicTerm, summary CutSummary, opened []Alert) {
	if svc.mailSvc == nil || assignment.TeacherEmail == "" {
		return
	}

	body := new(strings.Builder)
	fmt.Fprintf(body, "Preventive cut for %s (%s), cutoff %s, threshold %.1f.\n",
		assignment.SubjectName, term.Name, summary.CutoffDate.Format("2006-01-02"), summary.Threshold)
	fmt.Fprintf(body, "%d of %d students currently at risk. Newly flagged:\n", summary.AtRisk, summary.TotalStudents)
	for _, a := range opened {
		if a.LastGrade.Valid {
			fmt.Fprintf(body, "  - %s: %.1f\n", a.StudentName, a.LastGrade.Float64)
		} else {
			fmt.Fprintf(body, "  - %s: no grades yet\n", a.StudentName)
		}
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: assignment.TeacherEmail}},
		Subject: fmt.Sprintf("Preventive cut: %d student(s) at risk in %s", len(opened), assignment.SubjectName),
		BodyStr: body.String(),
	})
	if svc.logger != nil {
		svc.logger.Info(fmt.Sprintf("preventive cut: notified %s about %d newly opened alert(s)", assignment.TeacherEmail, len(opened)))
	}
}
