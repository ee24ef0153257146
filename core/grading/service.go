package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
)

var (
	// errors
	ErrPlanNotFound     = errors.New("evaluation plan not found")
	ErrActivityNotFound = errors.New("evaluative activity not found")
	ErrGradeNotFound    = errors.New("grade not found")
)

// weightEpsilon absorbs float noise when comparing weight totals to 100.
const weightEpsilon = 1e-9

type (
	Repository interface {
		GetPlan(ctx context.Context, assignmentID, termID string) (EvaluationPlan, error)
		// UpsertPlan replaces the plan (and all its weights) owned by the
		// plan's (assignment, term) pair.
		UpsertPlan(ctx context.Context, plan EvaluationPlan) (EvaluationPlan, error)
		GetActivityByID(ctx context.Context, id string) (EvaluativeActivity, error)
		// UpsertGrade inserts or overwrites the grade keyed by the unique
		// (enrollment, activity) pair.
		UpsertGrade(ctx context.Context, grade StudentGrade) (StudentGrade, error)
		GetGrade(ctx context.Context, enrollmentID, activityID string) (StudentGrade, error)
		// QueryComponentGrades returns the enrollment's grades on activities of
		// (term, component). When cutoff is set, only activities with no due
		// date or a due date <= cutoff are included.
		QueryComponentGrades(ctx context.Context, enrollmentID, termID, componentID string, cutoff null.Time) ([]StudentGrade, error)
		QueryComponentsByID(ctx context.Context, ids []string) ([]EvaluationComponent, error)
		// QueryScaleLevels returns the institution's scale ordered by MinScore.
		QueryScaleLevels(ctx context.Context, institutionID string) ([]ScaleLevel, error)
	}

	Service struct {
		repo         Repository
		academicRepo academic.Repository
		round        core.RoundFunc
	}
)

func NewService(repo Repository, academicRepo academic.Repository) *Service {
	return &Service{
		repo:         repo,
		academicRepo: academicRepo,
		round:        core.Round1,
	}
}

func (svc *Service) UpsertGrade(ctx context.Context, ng NewGrade) (StudentGrade, error) {
	if _, err := svc.repo.GetActivityByID(ctx, ng.ActivityID); err != nil {
		if err == ErrActivityNotFound {
			return StudentGrade{}, core.NewValidationError(err, core.FieldError{Field: "evaluative_activity_id", Error: err.Error()})
		}
		return StudentGrade{}, err
	}

	now := time.Now().UTC()
	grade := StudentGrade{
		EnrollmentID: ng.EnrollmentID,
		ActivityID:   ng.ActivityID,
		Score:        ng.Score,
		Observations: null.NewString(ng.Observations, ng.Observations != ""),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.UpsertGrade(ctx, grade)
}

// BulkUpsertGrades records many scores for one activity. Rows are independent
// single-row upserts with no shared transaction: each failure is reported on
// its own row and the remaining rows still go through.
func (svc *Service) BulkUpsertGrades(ctx context.Context, activityID string, items []BulkGradeItem) ([]BulkGradeResult, error) {
	if _, err := svc.repo.GetActivityByID(ctx, activityID); err != nil {
		if err == ErrActivityNotFound {
			return nil, core.NewValidationError(err, core.FieldError{Field: "evaluative_activity_id", Error: err.Error()})
		}
		return nil, err
	}

	results := make([]BulkGradeResult, 0, len(items))
	for i, item := range items {
		res := BulkGradeResult{Index: i}

		if item.EnrollmentID == "" {
			res.Error = "student_enrollment_id is required"
			results = append(results, res)
			continue
		}
		if item.Score < 1.0 || item.Score > 5.0 {
			res.Error = fmt.Sprintf("score %.1f out of range [1.0, 5.0]", item.Score)
			results = append(results, res)
			continue
		}

		now := time.Now().UTC()
		grade, err := svc.repo.UpsertGrade(ctx, StudentGrade{
			EnrollmentID: item.EnrollmentID,
			ActivityID:   activityID,
			Score:        item.Score,
			Observations: null.NewString(item.Observations, item.Observations != ""),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Grade = &grade
		}
		results = append(results, res)
	}
	return results, nil
}

func (svc *Service) GetGrade(ctx context.Context, enrollmentID, activityID string) (StudentGrade, error) {
	return svc.repo.GetGrade(ctx, enrollmentID, activityID)
}

// ComponentAverage computes the arithmetic mean of the enrollment's scores in
// (term, component), rounded to one decimal. The result is null when no grade
// matches: missing work never counts as a zero.
func (svc *Service) ComponentAverage(ctx context.Context, enrollmentID, termID, componentID string, cutoff *time.Time) (null.Float64, error) {
	grades, err := svc.repo.QueryComponentGrades(ctx, enrollmentID, termID, componentID, null.TimeFromPtr(cutoff))
	if err != nil {
		return null.Float64{}, err
	}
	if len(grades) == 0 {
		return null.Float64{}, nil
	}

	var sum float64
	for _, g := range grades {
		sum += g.Score
	}
	return null.Float64From(svc.round(sum / float64(len(grades)))), nil
}

// TermGrade combines the plan's component averages into one grade.
// Weights are renormalized over the components that actually have grades, so a
// partially-graded term still yields a meaningful grade instead of being
// diluted by a fixed /100 divisor.
func (svc *Service) TermGrade(ctx context.Context, enrollmentID, assignmentID, termID string, cutoff *time.Time) (TermGradeResult, error) {
	plan, err := svc.repo.GetPlan(ctx, assignmentID, termID)
	if err != nil {
		if err == ErrPlanNotFound {
			// no plan configured: null grade, no components reported
			return TermGradeResult{}, nil
		}
		return TermGradeResult{}, err
	}

	names, err := svc.componentNames(ctx, plan)
	if err != nil {
		return TermGradeResult{}, err
	}

	res := TermGradeResult{Components: make([]ComponentGrade, 0, len(plan.Weights))}
	var weightedSum, weightTotal float64
	for _, cw := range plan.Weights {
		avg, err := svc.ComponentAverage(ctx, enrollmentID, termID, cw.ComponentID, cutoff)
		if err != nil {
			return TermGradeResult{}, err
		}
		res.Components = append(res.Components, ComponentGrade{
			ComponentID:   cw.ComponentID,
			ComponentName: names[cw.ComponentID],
			Average:       avg,
			Percentage:    cw.Percentage,
		})
		if avg.Valid {
			weightedSum += avg.Float64 * cw.Percentage
			weightTotal += cw.Percentage
		}
	}

	if weightTotal > 0 {
		res.Grade = null.Float64From(svc.round(weightedSum / weightTotal))
	}
	return res, nil
}

// AnnualGrade combines the as-of-now term grades of the assignment's academic
// year, renormalizing term weights over the terms that have a grade, exactly
// like TermGrade does over components.
func (svc *Service) AnnualGrade(ctx context.Context, enrollmentID, assignmentID, yearID string) (AnnualGradeResult, error) {
	if _, err := svc.academicRepo.GetYearByID(ctx, yearID); err != nil {
		return AnnualGradeResult{}, err
	}
	terms, err := svc.academicRepo.QueryTermsByYear(ctx, yearID)
	if err != nil {
		return AnnualGradeResult{}, err
	}

	res := AnnualGradeResult{Terms: make([]TermBreakdown, 0, len(terms))}
	var weightedSum, weightTotal float64
	for _, term := range terms {
		tg, err := svc.TermGrade(ctx, enrollmentID, assignmentID, term.ID, nil)
		if err != nil {
			return AnnualGradeResult{}, err
		}
		res.Terms = append(res.Terms, TermBreakdown{
			AcademicTermID:   term.ID,
			TermName:         term.Name,
			Order:            term.Order,
			Grade:            tg.Grade,
			WeightPercentage: term.WeightPercentage,
		})
		if tg.Grade.Valid {
			weightedSum += tg.Grade.Float64 * term.WeightPercentage
			weightTotal += term.WeightPercentage
		}
	}

	if weightTotal > 0 {
		res.AnnualGrade = null.Float64From(svc.round(weightedSum / weightTotal))
	}
	return res, nil
}

// ResolveLevel classifies a score against the institution's performance scale.
// The score is rounded to one decimal before the inclusive band lookup.
// A nil result means no band matched: a scale configuration defect, not an error.
func (svc *Service) ResolveLevel(ctx context.Context, institutionID string, score float64) (*LevelResult, error) {
	rounded := svc.round(score)

	levels, err := svc.repo.QueryScaleLevels(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	for _, lvl := range levels {
		if rounded >= lvl.MinScore && rounded <= lvl.MaxScore {
			return &LevelResult{Level: lvl.Level, Score: rounded}, nil
		}
	}
	return nil, nil
}

// UpsertPlan creates or replaces the evaluation plan of (assignment, term).
// Component weights must add up to exactly 100 at save time.
func (svc *Service) UpsertPlan(ctx context.Context, np NewPlan) (EvaluationPlan, error) {
	var total float64
	for _, cw := range np.Weights {
		total += cw.Percentage
	}
	if math.Abs(total-100) > weightEpsilon {
		return EvaluationPlan{}, core.NewValidationError(nil, core.FieldError{
			Field: "components",
			Error: fmt.Sprintf("component percentages must sum to 100, got %g", total),
		})
	}

	if _, err := svc.academicRepo.GetAssignmentByID(ctx, np.TeacherAssignmentID); err != nil {
		if err == academic.ErrAssignmentNotFound {
			return EvaluationPlan{}, core.NewValidationError(err, core.FieldError{Field: "teacher_assignment_id", Error: err.Error()})
		}
		return EvaluationPlan{}, err
	}
	if _, err := svc.academicRepo.GetTermByID(ctx, np.AcademicTermID); err != nil {
		if err == academic.ErrTermNotFound {
			return EvaluationPlan{}, core.NewValidationError(err, core.FieldError{Field: "academic_term_id", Error: err.Error()})
		}
		return EvaluationPlan{}, err
	}

	now := time.Now().UTC()
	return svc.repo.UpsertPlan(ctx, EvaluationPlan{
		TeacherAssignmentID: np.TeacherAssignmentID,
		AcademicTermID:      np.AcademicTermID,
		Weights:             np.Weights,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
}

func (svc *Service) GetPlan(ctx context.Context, assignmentID, termID string) (EvaluationPlan, error) {
	return svc.repo.GetPlan(ctx, assignmentID, termID)
}

func (svc *Service) componentNames(ctx context.Context, plan EvaluationPlan) (map[string]string, error) {
	ids := make([]string, 0, len(plan.Weights))
	for _, cw := range plan.Weights {
		ids = append(ids, cw.ComponentID)
	}
	components, err := svc.repo.QueryComponentsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(components))
	for _, c := range components {
		names[c.ID] = c.Name
	}
	return names, nil
}
