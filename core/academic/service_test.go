package academic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolaris/notas/core/academic"
	dummydb "github.com/escolaris/notas/storage/database/dummy"
)

func newAcademicService(t *testing.T) (*academic.Service, *dummydb.AcademicRepository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewAcademicRepository(db)
	return academic.NewService(repo), repo
}

func TestCheckTermWeights(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown year", func(t *testing.T) {
		svc, _ := newAcademicService(t)
		_, err := svc.CheckTermWeights(ctx, "nope")
		assert.ErrorIs(t, err, academic.ErrYearNotFound)
	})

	tests := []struct {
		name      string
		weights   []float64
		wantValid bool
		wantTotal float64
	}{
		{name: "four even terms", weights: []float64{25, 25, 25, 25}, wantValid: true, wantTotal: 100},
		{name: "uneven but complete", weights: []float64{20, 20, 30, 30}, wantValid: true, wantTotal: 100},
		{name: "incomplete", weights: []float64{30, 30, 30}, wantValid: false, wantTotal: 90},
		{name: "overcommitted", weights: []float64{40, 40, 40}, wantValid: false, wantTotal: 120},
		{name: "no terms", weights: nil, wantValid: false, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newAcademicService(t)
			year := repo.AddYear(academic.AcademicYear{InstitutionID: "inst-1", Year: 2026})
			for i, w := range tt.weights {
				repo.AddTerm(academic.AcademicTerm{
					AcademicYearID:   year.ID,
					Order:            i + 1,
					WeightPercentage: w,
					Kind:             academic.TermOrdinary,
				})
			}

			check, err := svc.CheckTermWeights(ctx, year.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, check.Valid)
			assert.Equal(t, tt.wantTotal, check.Total)
		})
	}
}

func TestQueryYearTerms(t *testing.T) {
	ctx := context.Background()
	svc, repo := newAcademicService(t)

	year := repo.AddYear(academic.AcademicYear{InstitutionID: "inst-1", Year: 2026})
	// seeded out of order on purpose
	repo.AddTerm(academic.AcademicTerm{AcademicYearID: year.ID, Name: "Periodo 3", Order: 3, WeightPercentage: 25})
	repo.AddTerm(academic.AcademicTerm{AcademicYearID: year.ID, Name: "Periodo 1", Order: 1, WeightPercentage: 25})
	repo.AddTerm(academic.AcademicTerm{AcademicYearID: year.ID, Name: "Periodo 2", Order: 2, WeightPercentage: 25})

	terms, err := svc.QueryYearTerms(ctx, year.ID)
	require.NoError(t, err)
	require.Len(t, terms, 3)
	for i, term := range terms {
		assert.Equal(t, i+1, term.Order)
	}
}

func TestEnrollmentStudentName(t *testing.T) {
	enr := academic.Enrollment{StudentFirstName: "Ana", StudentLastName: "Gómez"}
	assert.Equal(t, "Gómez, Ana", enr.StudentName())
}
