package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolaris/notas/core/alert"
)

type AlertRepository struct {
	db *sqlx.DB
}

var _ alert.Repository = (*AlertRepository)(nil) // interface compliance check

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, teacher_assignment_id, enrollment_id, academic_term_id, student_name,
	last_grade, level, cutoff_date, status, recovery_plan, meeting_at, notes, created_at, updated_at`

func (repo *AlertRepository) GetConfig(ctx context.Context, termID string) (alert.CutConfig, error) {
	var cfg alert.CutConfig
	err := repo.db.GetContext(ctx, &cfg,
		`SELECT academic_term_id, cutoff_date, risk_threshold, created_at, updated_at
		 FROM preventive_cut_config WHERE academic_term_id = $1`, termID)
	if err == sql.ErrNoRows {
		return alert.CutConfig{}, alert.ErrConfigNotFound
	}
	return cfg, dbErr(err)
}

func (repo *AlertRepository) UpsertConfig(ctx context.Context, cfg alert.CutConfig) (alert.CutConfig, error) {
	var saved alert.CutConfig
	err := repo.db.GetContext(ctx, &saved,
		`INSERT INTO preventive_cut_config (academic_term_id, cutoff_date, risk_threshold, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (academic_term_id)
		 DO UPDATE SET cutoff_date = EXCLUDED.cutoff_date, risk_threshold = EXCLUDED.risk_threshold, updated_at = EXCLUDED.updated_at
		 RETURNING academic_term_id, cutoff_date, risk_threshold, created_at, updated_at`,
		cfg.AcademicTermID, cfg.CutoffDate, cfg.RiskThreshold, cfg.CreatedAt, cfg.UpdatedAt)
	return saved, dbErr(err)
}

func (repo *AlertRepository) GetAlert(ctx context.Context, assignmentID, enrollmentID, termID string) (alert.Alert, error) {
	var al alert.Alert
	err := repo.db.GetContext(ctx, &al,
		`SELECT `+alertColumns+`
		 FROM preventive_alert
		 WHERE teacher_assignment_id = $1 AND enrollment_id = $2 AND academic_term_id = $3`,
		assignmentID, enrollmentID, termID)
	if err == sql.ErrNoRows {
		return alert.Alert{}, alert.ErrNotFound
	}
	return al, dbErr(err)
}

func (repo *AlertRepository) GetAlertByID(ctx context.Context, id string) (alert.Alert, error) {
	var al alert.Alert
	err := repo.db.GetContext(ctx, &al,
		`SELECT `+alertColumns+` FROM preventive_alert WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return alert.Alert{}, alert.ErrNotFound
	}
	return al, dbErr(err)
}

// UpsertAlert writes the engine-owned columns of the alert keyed by its
// (assignment, enrollment, term) triple. Human-managed columns and created_at
// are left untouched on conflict.
func (repo *AlertRepository) UpsertAlert(ctx context.Context, al alert.Alert) (alert.Alert, error) {
	var saved alert.Alert
	err := repo.db.GetContext(ctx, &saved,
		`INSERT INTO preventive_alert (id, teacher_assignment_id, enrollment_id, academic_term_id, student_name,
			last_grade, level, cutoff_date, status, recovery_plan, meeting_at, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (teacher_assignment_id, enrollment_id, academic_term_id)
		 DO UPDATE SET student_name = EXCLUDED.student_name,
			last_grade = EXCLUDED.last_grade,
			level = EXCLUDED.level,
			cutoff_date = EXCLUDED.cutoff_date,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+alertColumns,
		uuid.New().String(), al.TeacherAssignmentID, al.EnrollmentID, al.AcademicTermID, al.StudentName,
		al.LastGrade, al.Level, al.CutoffDate, al.Status, al.RecoveryPlan, al.MeetingAt, al.Notes,
		al.CreatedAt, al.UpdatedAt)
	return saved, dbErr(err)
}

func (repo *AlertRepository) UpdateAlert(ctx context.Context, al alert.Alert) (alert.Alert, error) {
	var saved alert.Alert
	err := repo.db.GetContext(ctx, &saved,
		`UPDATE preventive_alert
		 SET status = $2, recovery_plan = $3, meeting_at = $4, notes = $5, updated_at = $6
		 WHERE id = $1
		 RETURNING `+alertColumns,
		al.ID, al.Status, al.RecoveryPlan, al.MeetingAt, al.Notes, al.UpdatedAt)
	if err == sql.ErrNoRows {
		return alert.Alert{}, alert.ErrNotFound
	}
	return saved, dbErr(err)
}

func (repo *AlertRepository) FilterAlerts(ctx context.Context, filter alert.QueryFilter) ([]alert.Alert, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	add := func(column, value string) {
		if value != "" {
			args = append(args, value)
			where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("teacher_assignment_id", filter.TeacherAssignmentID)
	add("academic_term_id", filter.AcademicTermID)
	add("enrollment_id", filter.EnrollmentID)
	add("status", filter.Status)

	query := `SELECT ` + alertColumns + ` FROM preventive_alert`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY student_name"

	alerts := make([]alert.Alert, 0)
	err := repo.db.SelectContext(ctx, &alerts, query, args...)
	return alerts, dbErr(err)
}
