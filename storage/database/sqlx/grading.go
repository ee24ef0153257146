package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core/grading"
)

type GradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*GradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) *GradingRepository {
	return &GradingRepository{db: db}
}

func (repo *GradingRepository) GetPlan(ctx context.Context, assignmentID, termID string) (grading.EvaluationPlan, error) {
	var plan grading.EvaluationPlan
	err := repo.db.GetContext(ctx, &plan,
		`SELECT id, teacher_assignment_id, academic_term_id, created_at, updated_at
		 FROM evaluation_plan
		 WHERE teacher_assignment_id = $1 AND academic_term_id = $2`,
		assignmentID, termID)
	if err == sql.ErrNoRows {
		return grading.EvaluationPlan{}, grading.ErrPlanNotFound
	}
	if err != nil {
		return grading.EvaluationPlan{}, err
	}

	err = repo.db.SelectContext(ctx, &plan.Weights,
		`SELECT component_id, percentage FROM evaluation_plan_weight WHERE plan_id = $1`,
		plan.ID)
	return plan, dbErr(err)
}

func (repo *GradingRepository) UpsertPlan(ctx context.Context, plan grading.EvaluationPlan) (grading.EvaluationPlan, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return grading.EvaluationPlan{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	saved := plan
	err = tx.GetContext(ctx, &saved,
		`INSERT INTO evaluation_plan (id, teacher_assignment_id, academic_term_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (teacher_assignment_id, academic_term_id)
		 DO UPDATE SET updated_at = EXCLUDED.updated_at
		 RETURNING id, teacher_assignment_id, academic_term_id, created_at, updated_at`,
		uuid.New().String(), plan.TeacherAssignmentID, plan.AcademicTermID, plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return grading.EvaluationPlan{}, errors.Wrap(err, "upserting plan")
	}
	saved.Weights = plan.Weights

	// replace the weight set wholesale
	if _, err = tx.ExecContext(ctx, `DELETE FROM evaluation_plan_weight WHERE plan_id = $1`, saved.ID); err != nil {
		return grading.EvaluationPlan{}, errors.Wrap(err, "clearing plan weights")
	}
	for _, cw := range saved.Weights {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO evaluation_plan_weight (plan_id, component_id, percentage) VALUES ($1, $2, $3)`,
			saved.ID, cw.ComponentID, cw.Percentage); err != nil {
			return grading.EvaluationPlan{}, errors.Wrap(err, "inserting plan weight")
		}
	}

	if err = tx.Commit(); err != nil {
		return grading.EvaluationPlan{}, errors.Wrap(err, "committing tx")
	}
	return saved, nil
}

func (repo *GradingRepository) GetActivityByID(ctx context.Context, id string) (grading.EvaluativeActivity, error) {
	var act grading.EvaluativeActivity
	err := repo.db.GetContext(ctx, &act,
		`SELECT id, teacher_assignment_id, academic_term_id, COALESCE(plan_id::text, '') AS plan_id, component_id, name, due_date
		 FROM evaluative_activity WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return grading.EvaluativeActivity{}, grading.ErrActivityNotFound
	}
	return act, dbErr(err)
}

func (repo *GradingRepository) UpsertGrade(ctx context.Context, grade grading.StudentGrade) (grading.StudentGrade, error) {
	var saved grading.StudentGrade
	err := repo.db.GetContext(ctx, &saved,
		`INSERT INTO student_grade (id, enrollment_id, activity_id, score, observations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (enrollment_id, activity_id)
		 DO UPDATE SET score = EXCLUDED.score, observations = EXCLUDED.observations, updated_at = EXCLUDED.updated_at
		 RETURNING id, enrollment_id, activity_id, score, observations, created_at, updated_at`,
		uuid.New().String(), grade.EnrollmentID, grade.ActivityID, grade.Score, grade.Observations, grade.CreatedAt, grade.UpdatedAt)
	return saved, dbErr(err)
}

func (repo *GradingRepository) GetGrade(ctx context.Context, enrollmentID, activityID string) (grading.StudentGrade, error) {
	var grade grading.StudentGrade
	err := repo.db.GetContext(ctx, &grade,
		`SELECT id, enrollment_id, activity_id, score, observations, created_at, updated_at
		 FROM student_grade
		 WHERE enrollment_id = $1 AND activity_id = $2`,
		enrollmentID, activityID)
	if err == sql.ErrNoRows {
		return grading.StudentGrade{}, grading.ErrGradeNotFound
	}
	return grade, dbErr(err)
}

func (repo *GradingRepository) QueryComponentGrades(ctx context.Context, enrollmentID, termID, componentID string, cutoff null.Time) ([]grading.StudentGrade, error) {
	grades := make([]grading.StudentGrade, 0)
	err := repo.db.SelectContext(ctx, &grades,
		`SELECT g.id, g.enrollment_id, g.activity_id, g.score, g.observations, g.created_at, g.updated_at
		 FROM student_grade g
		 JOIN evaluative_activity a ON a.id = g.activity_id
		 WHERE g.enrollment_id = $1
		   AND a.academic_term_id = $2
		   AND a.component_id = $3
		   AND ($4::timestamptz IS NULL OR a.due_date IS NULL OR a.due_date <= $4)
		 ORDER BY g.id`,
		enrollmentID, termID, componentID, cutoff)
	return grades, dbErr(err)
}

func (repo *GradingRepository) QueryComponentsByID(ctx context.Context, ids []string) ([]grading.EvaluationComponent, error) {
	components := make([]grading.EvaluationComponent, 0, len(ids))
	if len(ids) == 0 {
		return components, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, institution_id, parent_id, code, name FROM evaluation_component WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building components query")
	}
	err = repo.db.SelectContext(ctx, &components, repo.db.Rebind(query), args...)
	return components, dbErr(err)
}

func (repo *GradingRepository) QueryScaleLevels(ctx context.Context, institutionID string) ([]grading.ScaleLevel, error) {
	levels := make([]grading.ScaleLevel, 0)
	err := repo.db.SelectContext(ctx, &levels,
		`SELECT id, institution_id, level, min_score, max_score
		 FROM performance_scale WHERE institution_id = $1
		 ORDER BY min_score`, institutionID)
	return levels, dbErr(err)
}
