package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core/grading"
)

type GradingRepository struct {
	db *gradingTables
}

var _ grading.Repository = (*GradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *GradingRepository {
	return &GradingRepository{db: db.grading}
}

// Seed helpers for catalog data owned by collaborators.

func (repo *GradingRepository) AddComponent(c grading.EvaluationComponent) grading.EvaluationComponent {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	repo.db.components[c.ID] = &c
	return c
}

func (repo *GradingRepository) AddActivity(a grading.EvaluativeActivity) grading.EvaluativeActivity {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.activities[a.ID] = &a
	return a
}

func (repo *GradingRepository) AddScaleLevel(lvl grading.ScaleLevel) grading.ScaleLevel {
	repo.db.Lock()
	defer repo.db.Unlock()

	if lvl.ID == "" {
		lvl.ID = uuid.New().String()
	}
	repo.db.scales[lvl.ID] = &lvl
	return lvl
}

// grading.Repository

func (repo *GradingRepository) GetPlan(ctx context.Context, assignmentID, termID string) (grading.EvaluationPlan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, plan := range repo.db.plans {
		if plan.TeacherAssignmentID == assignmentID && plan.AcademicTermID == termID {
			return *plan, nil
		}
	}
	return grading.EvaluationPlan{}, grading.ErrPlanNotFound
}

func (repo *GradingRepository) UpsertPlan(ctx context.Context, plan grading.EvaluationPlan) (grading.EvaluationPlan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.plans {
		if orig.TeacherAssignmentID == plan.TeacherAssignmentID && orig.AcademicTermID == plan.AcademicTermID {
			plan.ID = orig.ID
			plan.CreatedAt = orig.CreatedAt
			repo.db.plans[plan.ID] = &plan
			return plan, nil
		}
	}
	plan.ID = uuid.New().String()
	repo.db.plans[plan.ID] = &plan
	return plan, nil
}

func (repo *GradingRepository) GetActivityByID(ctx context.Context, id string) (grading.EvaluativeActivity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return grading.EvaluativeActivity{}, grading.ErrActivityNotFound
}

func (repo *GradingRepository) UpsertGrade(ctx context.Context, grade grading.StudentGrade) (grading.StudentGrade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.grades {
		if orig.EnrollmentID == grade.EnrollmentID && orig.ActivityID == grade.ActivityID {
			grade.ID = orig.ID
			grade.CreatedAt = orig.CreatedAt
			repo.db.grades[grade.ID] = &grade
			return grade, nil
		}
	}
	grade.ID = uuid.New().String()
	repo.db.grades[grade.ID] = &grade
	return grade, nil
}

func (repo *GradingRepository) GetGrade(ctx context.Context, enrollmentID, activityID string) (grading.StudentGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, g := range repo.db.grades {
		if g.EnrollmentID == enrollmentID && g.ActivityID == activityID {
			return *g, nil
		}
	}
	return grading.StudentGrade{}, grading.ErrGradeNotFound
}

func (repo *GradingRepository) QueryComponentGrades(ctx context.Context, enrollmentID, termID, componentID string, cutoff null.Time) ([]grading.StudentGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var grades []grading.StudentGrade
	for _, g := range repo.db.grades {
		if g.EnrollmentID != enrollmentID {
			continue
		}
		act, ok := repo.db.activities[g.ActivityID]
		if !ok || act.AcademicTermID != termID || act.ComponentID != componentID {
			continue
		}
		// point-in-time: keep activities with no due date or due <= cutoff
		if cutoff.Valid && act.DueDate.Valid && act.DueDate.Time.After(cutoff.Time) {
			continue
		}
		grades = append(grades, *g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (repo *GradingRepository) QueryComponentsByID(ctx context.Context, ids []string) ([]grading.EvaluationComponent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	components := make([]grading.EvaluationComponent, 0, len(ids))
	for _, id := range ids {
		if c, ok := repo.db.components[id]; ok {
			components = append(components, *c)
		}
	}
	return components, nil
}

func (repo *GradingRepository) QueryScaleLevels(ctx context.Context, institutionID string) ([]grading.ScaleLevel, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var levels []grading.ScaleLevel
	for _, lvl := range repo.db.scales {
		if lvl.InstitutionID == institutionID {
			levels = append(levels, *lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].MinScore < levels[j].MinScore })
	return levels, nil
}
