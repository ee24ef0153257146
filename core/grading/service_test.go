package grading_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/core/grading"
	dummydb "github.com/escolaris/notas/storage/database/dummy"
)

type gradingFixture struct {
	svc          *grading.Service
	repo         *dummydb.GradingRepository
	academicRepo *dummydb.AcademicRepository

	institutionID string
	year          academic.AcademicYear
	terms         []academic.AcademicTerm
	assignment    academic.TeacherAssignment
	enrollment    academic.Enrollment
	compExams     grading.EvaluationComponent
	compHomework  grading.EvaluationComponent
}

func newGradingFixture(t *testing.T) *gradingFixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	fix := &gradingFixture{
		repo:          dummydb.NewGradingRepository(db),
		academicRepo:  dummydb.NewAcademicRepository(db),
		institutionID: "inst-1",
	}
	fix.svc = grading.NewService(fix.repo, fix.academicRepo)

	fix.year = fix.academicRepo.AddYear(academic.AcademicYear{InstitutionID: fix.institutionID, Year: 2026})
	for i := 1; i <= 4; i++ {
		fix.terms = append(fix.terms, fix.academicRepo.AddTerm(academic.AcademicTerm{
			AcademicYearID:   fix.year.ID,
			Name:             "Periodo",
			Order:            i,
			WeightPercentage: 25,
			Kind:             academic.TermOrdinary,
		}))
	}
	fix.assignment = fix.academicRepo.AddAssignment(academic.TeacherAssignment{
		TeacherID:      "teacher-1",
		TeacherEmail:   "teacher@example.com",
		SubjectID:      "subj-math",
		SubjectName:    "Matemáticas",
		GroupID:        "group-7a",
		AcademicYearID: fix.year.ID,
	})
	fix.enrollment = fix.academicRepo.AddEnrollment(academic.Enrollment{
		StudentID:        "student-1",
		StudentFirstName: "Ana",
		StudentLastName:  "Gómez",
		GroupID:          "group-7a",
		AcademicYearID:   fix.year.ID,
		Status:           academic.EnrollmentActive,
	})
	fix.compExams = fix.repo.AddComponent(grading.EvaluationComponent{InstitutionID: fix.institutionID, Code: "EXAM", Name: "Exámenes"})
	fix.compHomework = fix.repo.AddComponent(grading.EvaluationComponent{InstitutionID: fix.institutionID, Code: "HW", Name: "Tareas"})
	return fix
}

func (fix *gradingFixture) addActivity(t *testing.T, termID, componentID string, due *time.Time) grading.EvaluativeActivity {
	t.Helper()
	return fix.repo.AddActivity(grading.EvaluativeActivity{
		TeacherAssignmentID: fix.assignment.ID,
		AcademicTermID:      termID,
		ComponentID:         componentID,
		Name:                "Actividad",
		DueDate:             null.TimeFromPtr(due),
	})
}

func (fix *gradingFixture) grade(t *testing.T, activityID string, score float64) grading.StudentGrade {
	t.Helper()
	g, err := fix.svc.UpsertGrade(context.Background(), grading.NewGrade{
		EnrollmentID: fix.enrollment.ID,
		ActivityID:   activityID,
		Score:        score,
	})
	require.NoError(t, err)
	return g
}

func (fix *gradingFixture) savePlan(t *testing.T, termID string, weights []grading.ComponentWeight) grading.EvaluationPlan {
	t.Helper()
	plan, err := fix.svc.UpsertPlan(context.Background(), grading.NewPlan{
		TeacherAssignmentID: fix.assignment.ID,
		AcademicTermID:      termID,
		Weights:             weights,
	})
	require.NoError(t, err)
	return plan
}

func TestUpsertGrade(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)
	act := fix.addActivity(t, fix.terms[0].ID, fix.compExams.ID, nil)

	t.Run("unknown activity is a validation error", func(t *testing.T) {
		_, err := fix.svc.UpsertGrade(ctx, grading.NewGrade{
			EnrollmentID: fix.enrollment.ID,
			ActivityID:   "nope",
			Score:        4.0,
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "evaluative_activity_id", verr.Fields[0].Field)
	})

	t.Run("re-saving the same pair overwrites", func(t *testing.T) {
		first := fix.grade(t, act.ID, 3.5)
		second, err := fix.svc.UpsertGrade(ctx, grading.NewGrade{
			EnrollmentID: fix.enrollment.ID,
			ActivityID:   act.ID,
			Score:        4.2,
			Observations: "recuperación",
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 4.2, second.Score)
		assert.Equal(t, "recuperación", second.Observations.String)

		stored, err := fix.svc.GetGrade(ctx, fix.enrollment.ID, act.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.2, stored.Score)
	})
}

func TestBulkUpsertGrades(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)
	act := fix.addActivity(t, fix.terms[0].ID, fix.compExams.ID, nil)

	enr2 := fix.academicRepo.AddEnrollment(academic.Enrollment{
		StudentID:        "student-2",
		StudentFirstName: "Luis",
		StudentLastName:  "Pérez",
		GroupID:          "group-7a",
		AcademicYearID:   fix.year.ID,
		Status:           academic.EnrollmentActive,
	})

	t.Run("unknown activity rejects the whole request", func(t *testing.T) {
		_, err := fix.svc.BulkUpsertGrades(ctx, "nope", []grading.BulkGradeItem{{EnrollmentID: fix.enrollment.ID, Score: 4.0}})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("a failed row never aborts its siblings", func(t *testing.T) {
		results, err := fix.svc.BulkUpsertGrades(ctx, act.ID, []grading.BulkGradeItem{
			{EnrollmentID: fix.enrollment.ID, Score: 4.0},
			{EnrollmentID: enr2.ID, Score: 0.5}, // out of range
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, 0, results[0].Index)
		assert.Empty(t, results[0].Error)
		require.NotNil(t, results[0].Grade)
		assert.Equal(t, 4.0, results[0].Grade.Score)

		assert.Equal(t, 1, results[1].Index)
		assert.Nil(t, results[1].Grade)
		assert.Equal(t, "score 0.5 out of range [1.0, 5.0]", results[1].Error)

		// the good row is retrievable, the bad one was never stored
		_, err = fix.svc.GetGrade(ctx, fix.enrollment.ID, act.ID)
		assert.NoError(t, err)
		_, err = fix.svc.GetGrade(ctx, enr2.ID, act.ID)
		assert.ErrorIs(t, err, grading.ErrGradeNotFound)
	})
}

func TestComponentAverage(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)
	term := fix.terms[0]

	t.Run("no grades yields null, never zero", func(t *testing.T) {
		avg, err := fix.svc.ComponentAverage(ctx, fix.enrollment.ID, term.ID, fix.compExams.ID, nil)
		require.NoError(t, err)
		assert.False(t, avg.Valid)
	})

	t.Run("mean rounded to one decimal", func(t *testing.T) {
		act1 := fix.addActivity(t, term.ID, fix.compExams.ID, nil)
		act2 := fix.addActivity(t, term.ID, fix.compExams.ID, nil)
		fix.grade(t, act1.ID, 4.0)
		fix.grade(t, act2.ID, 5.0)

		avg, err := fix.svc.ComponentAverage(ctx, fix.enrollment.ID, term.ID, fix.compExams.ID, nil)
		require.NoError(t, err)
		require.True(t, avg.Valid)
		assert.Equal(t, 4.5, avg.Float64)
	})

	t.Run("cutoff excludes later activities", func(t *testing.T) {
		cutoff := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
		before := cutoff.AddDate(0, 0, -7)
		after := cutoff.AddDate(0, 0, 7)

		actBefore := fix.addActivity(t, term.ID, fix.compHomework.ID, &before)
		actAfter := fix.addActivity(t, term.ID, fix.compHomework.ID, &after)
		actUndated := fix.addActivity(t, term.ID, fix.compHomework.ID, nil)
		fix.grade(t, actBefore.ID, 3.0)
		fix.grade(t, actAfter.ID, 5.0)
		fix.grade(t, actUndated.ID, 4.0)

		// as of cutoff: undated + before only -> (3.0 + 4.0) / 2
		avg, err := fix.svc.ComponentAverage(ctx, fix.enrollment.ID, term.ID, fix.compHomework.ID, &cutoff)
		require.NoError(t, err)
		require.True(t, avg.Valid)
		assert.Equal(t, 3.5, avg.Float64)

		// without cutoff everything counts -> (3.0 + 5.0 + 4.0) / 3 = 4.0
		avg, err = fix.svc.ComponentAverage(ctx, fix.enrollment.ID, term.ID, fix.compHomework.ID, nil)
		require.NoError(t, err)
		require.True(t, avg.Valid)
		assert.Equal(t, 4.0, avg.Float64)
	})
}

func TestUpsertPlan(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)
	term := fix.terms[0]

	weights := func(exam, hw float64) []grading.ComponentWeight {
		return []grading.ComponentWeight{
			{ComponentID: fix.compExams.ID, Percentage: exam},
			{ComponentID: fix.compHomework.ID, Percentage: hw},
		}
	}

	t.Run("weights must sum to 100", func(t *testing.T) {
		_, err := fix.svc.UpsertPlan(ctx, grading.NewPlan{
			TeacherAssignmentID: fix.assignment.ID,
			AcademicTermID:      term.ID,
			Weights:             weights(40, 30),
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "components", verr.Fields[0].Field)
		assert.Contains(t, verr.Fields[0].Error, "got 70")
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := fix.svc.UpsertPlan(ctx, grading.NewPlan{
			TeacherAssignmentID: "nope",
			AcademicTermID:      term.ID,
			Weights:             weights(60, 40),
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "teacher_assignment_id", verr.Fields[0].Field)
	})

	t.Run("unknown term", func(t *testing.T) {
		_, err := fix.svc.UpsertPlan(ctx, grading.NewPlan{
			TeacherAssignmentID: fix.assignment.ID,
			AcademicTermID:      "nope",
			Weights:             weights(60, 40),
		})
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "academic_term_id", verr.Fields[0].Field)
	})

	t.Run("re-saving replaces the plan in place", func(t *testing.T) {
		first := fix.savePlan(t, term.ID, weights(60, 40))
		second := fix.savePlan(t, term.ID, weights(50, 50))
		assert.Equal(t, first.ID, second.ID)
		require.Len(t, second.Weights, 2)
		assert.Equal(t, 50.0, second.Weights[0].Percentage)

		stored, err := fix.svc.GetPlan(ctx, fix.assignment.ID, term.ID)
		require.NoError(t, err)
		assert.Equal(t, second.Weights, stored.Weights)
	})
}

func TestTermGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("no plan yields a null grade", func(t *testing.T) {
		fix := newGradingFixture(t)
		res, err := fix.svc.TermGrade(ctx, fix.enrollment.ID, fix.assignment.ID, fix.terms[0].ID, nil)
		require.NoError(t, err)
		assert.False(t, res.Grade.Valid)
		assert.Empty(t, res.Components)
	})

	t.Run("weights renormalize over graded components", func(t *testing.T) {
		fix := newGradingFixture(t)
		term := fix.terms[0]
		fix.savePlan(t, term.ID, []grading.ComponentWeight{
			{ComponentID: fix.compExams.ID, Percentage: 60},
			{ComponentID: fix.compHomework.ID, Percentage: 40},
		})
		actExam := fix.addActivity(t, term.ID, fix.compExams.ID, nil)
		fix.grade(t, actExam.ID, 4.0)

		// only the 60% component has grades: 4.0*60/60, not 4.0*60/100
		res, err := fix.svc.TermGrade(ctx, fix.enrollment.ID, fix.assignment.ID, term.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Grade.Valid)
		assert.Equal(t, 4.0, res.Grade.Float64)

		require.Len(t, res.Components, 2)
		assert.Equal(t, "Exámenes", res.Components[0].ComponentName)
		assert.True(t, res.Components[0].Average.Valid)
		assert.False(t, res.Components[1].Average.Valid)

		// once the second component has grades, full weighting applies:
		// 4.0*0.6 + 3.0*0.4 = 3.6
		actHW := fix.addActivity(t, term.ID, fix.compHomework.ID, nil)
		fix.grade(t, actHW.ID, 3.0)

		res, err = fix.svc.TermGrade(ctx, fix.enrollment.ID, fix.assignment.ID, term.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Grade.Valid)
		assert.Equal(t, 3.6, res.Grade.Float64)
	})

	t.Run("no grades at all yields null with full breakdown", func(t *testing.T) {
		fix := newGradingFixture(t)
		term := fix.terms[0]
		fix.savePlan(t, term.ID, []grading.ComponentWeight{
			{ComponentID: fix.compExams.ID, Percentage: 100},
		})

		res, err := fix.svc.TermGrade(ctx, fix.enrollment.ID, fix.assignment.ID, term.ID, nil)
		require.NoError(t, err)
		assert.False(t, res.Grade.Valid)
		require.Len(t, res.Components, 1)
		assert.False(t, res.Components[0].Average.Valid)
	})
}

func TestAnnualGrade(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)

	t.Run("unknown year", func(t *testing.T) {
		_, err := fix.svc.AnnualGrade(ctx, fix.enrollment.ID, fix.assignment.ID, "nope")
		assert.ErrorIs(t, err, academic.ErrYearNotFound)
	})

	// plan + one graded activity per term; third term stays ungraded
	scores := map[int]float64{0: 4.0, 1: 3.0, 3: 5.0}
	for i, term := range fix.terms {
		fix.savePlan(t, term.ID, []grading.ComponentWeight{
			{ComponentID: fix.compExams.ID, Percentage: 100},
		})
		if score, ok := scores[i]; ok {
			act := fix.addActivity(t, term.ID, fix.compExams.ID, nil)
			fix.grade(t, act.ID, score)
		}
	}

	t.Run("term weights renormalize over graded terms", func(t *testing.T) {
		// (4.0 + 3.0 + 5.0) * 25 / 75 = 4.0
		res, err := fix.svc.AnnualGrade(ctx, fix.enrollment.ID, fix.assignment.ID, fix.year.ID)
		require.NoError(t, err)
		require.True(t, res.AnnualGrade.Valid)
		assert.Equal(t, 4.0, res.AnnualGrade.Float64)

		require.Len(t, res.Terms, 4)
		for i, term := range res.Terms {
			assert.Equal(t, i+1, term.Order)
		}
		assert.False(t, res.Terms[2].Grade.Valid)
	})
}

func TestResolveLevel(t *testing.T) {
	ctx := context.Background()
	fix := newGradingFixture(t)

	for _, lvl := range []grading.ScaleLevel{
		{Level: "BAJO", MinScore: 1.0, MaxScore: 2.9},
		{Level: "BASICO", MinScore: 3.0, MaxScore: 3.9},
		{Level: "ALTO", MinScore: 4.0, MaxScore: 4.4},
		{Level: "SUPERIOR", MinScore: 4.5, MaxScore: 5.0},
	} {
		lvl.InstitutionID = fix.institutionID
		fix.repo.AddScaleLevel(lvl)
	}

	tests := []struct {
		name      string
		score     float64
		wantLevel string
		wantScore float64
	}{
		{name: "rounds up across the band boundary", score: 4.45, wantLevel: "SUPERIOR", wantScore: 4.5},
		{name: "rounds down and stays in band", score: 4.44, wantLevel: "ALTO", wantScore: 4.4},
		{name: "upper bound is inclusive", score: 3.9, wantLevel: "BASICO", wantScore: 3.9},
		{name: "lower bound is inclusive", score: 4.0, wantLevel: "ALTO", wantScore: 4.0},
		{name: "bottom of the scale", score: 1.0, wantLevel: "BAJO", wantScore: 1.0},
		{name: "top of the scale", score: 5.0, wantLevel: "SUPERIOR", wantScore: 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fix.svc.ResolveLevel(ctx, fix.institutionID, tt.score)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tt.wantLevel, res.Level)
			assert.Equal(t, tt.wantScore, res.Score)
		})
	}

	t.Run("no matching band yields nil, not an error", func(t *testing.T) {
		res, err := fix.svc.ResolveLevel(ctx, "inst-without-scale", 4.0)
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}
