package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/escolaris/notas/core/alert"
)

type AlertRepository struct {
	db *alertTables
}

var _ alert.Repository = (*AlertRepository)(nil) // interface compliance check

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db.alert}
}

func (repo *AlertRepository) GetConfig(ctx context.Context, termID string) (alert.CutConfig, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cfg, ok := repo.db.configs[termID]; ok {
		return *cfg, nil
	}
	return alert.CutConfig{}, alert.ErrConfigNotFound
}

func (repo *AlertRepository) UpsertConfig(ctx context.Context, cfg alert.CutConfig) (alert.CutConfig, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.configs[cfg.AcademicTermID]; ok {
		cfg.CreatedAt = orig.CreatedAt
	}
	repo.db.configs[cfg.AcademicTermID] = &cfg
	return cfg, nil
}

func (repo *AlertRepository) GetAlert(ctx context.Context, assignmentID, enrollmentID, termID string) (alert.Alert, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.alerts {
		if a.TeacherAssignmentID == assignmentID && a.EnrollmentID == enrollmentID && a.AcademicTermID == termID {
			return *a, nil
		}
	}
	return alert.Alert{}, alert.ErrNotFound
}

func (repo *AlertRepository) GetAlertByID(ctx context.Context, id string) (alert.Alert, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.alerts[id]; ok {
		return *a, nil
	}
	return alert.Alert{}, alert.ErrNotFound
}

func (repo *AlertRepository) UpsertAlert(ctx context.Context, al alert.Alert) (alert.Alert, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.alerts {
		if orig.TeacherAssignmentID == al.TeacherAssignmentID && orig.EnrollmentID == al.EnrollmentID && orig.AcademicTermID == al.AcademicTermID {
			al.ID = orig.ID
			al.CreatedAt = orig.CreatedAt
			// human-managed fields survive the automatic upsert
			al.RecoveryPlan = orig.RecoveryPlan
			al.MeetingAt = orig.MeetingAt
			al.Notes = orig.Notes
			repo.db.alerts[al.ID] = &al
			return al, nil
		}
	}
	al.ID = uuid.New().String()
	repo.db.alerts[al.ID] = &al
	return al, nil
}

func (repo *AlertRepository) UpdateAlert(ctx context.Context, al alert.Alert) (alert.Alert, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.alerts[al.ID]; !ok {
		return alert.Alert{}, alert.ErrNotFound
	}
	repo.db.alerts[al.ID] = &al
	return al, nil
}

func (repo *AlertRepository) FilterAlerts(ctx context.Context, filter alert.QueryFilter) ([]alert.Alert, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var alerts []alert.Alert
	for _, a := range repo.db.alerts {
		if filter.TeacherAssignmentID != "" && a.TeacherAssignmentID != filter.TeacherAssignmentID {
			continue
		}
		if filter.AcademicTermID != "" && a.AcademicTermID != filter.AcademicTermID {
			continue
		}
		if filter.EnrollmentID != "" && a.EnrollmentID != filter.EnrollmentID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		alerts = append(alerts, *a)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].StudentName < alerts[j].StudentName })
	return alerts, nil
}
