package academic

import (
	"context"
	"errors"
	"math"
)

var (
	// errors
	ErrYearNotFound       = errors.New("academic year not found")
	ErrTermNotFound       = errors.New("academic term not found")
	ErrAssignmentNotFound = errors.New("teacher assignment not found")
)

// weightEpsilon absorbs float noise when comparing weight totals to 100.
const weightEpsilon = 1e-9

type (
	// Repository reads collaborator-owned academic records. All methods are
	// read-only: years, terms, enrollments and assignments are managed elsewhere.
	Repository interface {
		GetYearByID(ctx context.Context, id string) (AcademicYear, error)
		GetTermByID(ctx context.Context, id string) (AcademicTerm, error)
		// QueryTermsByYear returns the year's terms ordered by Order.
		QueryTermsByYear(ctx context.Context, yearID string) ([]AcademicTerm, error)
		GetAssignmentByID(ctx context.Context, id string) (TeacherAssignment, error)
		// QueryActiveEnrollments returns ACTIVE enrollments of (group, year)
		// ordered by student last name, first name, id.
		QueryActiveEnrollments(ctx context.Context, groupID, yearID string) ([]Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetYear(ctx context.Context, id string) (AcademicYear, error) {
	return svc.repo.GetYearByID(ctx, id)
}

func (svc *Service) GetTerm(ctx context.Context, id string) (AcademicTerm, error) {
	return svc.repo.GetTermByID(ctx, id)
}

func (svc *Service) QueryYearTerms(ctx context.Context, yearID string) ([]AcademicTerm, error) {
	return svc.repo.QueryTermsByYear(ctx, yearID)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (TeacherAssignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

// CheckTermWeights sums the WeightPercentage of every term in the year.
// A total different from 100 only flags the check as invalid; aggregation
// stays well-defined regardless since weights are renormalized on read.
func (svc *Service) CheckTermWeights(ctx context.Context, yearID string) (TermWeightCheck, error) {
	if _, err := svc.repo.GetYearByID(ctx, yearID); err != nil {
		return TermWeightCheck{}, err
	}
	terms, err := svc.repo.QueryTermsByYear(ctx, yearID)
	if err != nil {
		return TermWeightCheck{}, err
	}

	var total float64
	for _, term := range terms {
		total += term.WeightPercentage
	}
	return TermWeightCheck{
		Valid: math.Abs(total-100) < weightEpsilon,
		Total: total,
	}, nil
}
