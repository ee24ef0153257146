package dummydb

import (
	"sync"

	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/core/alert"
	"github.com/escolaris/notas/core/grading"
)

type (
	DB struct {
		academic *academicTables
		grading  *gradingTables
		alert    *alertTables
	}

	academicTables struct {
		sync.RWMutex
		years       map[string]*academic.AcademicYear
		terms       map[string]*academic.AcademicTerm
		assignments map[string]*academic.TeacherAssignment
		enrollments map[string]*academic.Enrollment
	}

	gradingTables struct {
		sync.RWMutex
		components map[string]*grading.EvaluationComponent
		plans      map[string]*grading.EvaluationPlan
		activities map[string]*grading.EvaluativeActivity
		grades     map[string]*grading.StudentGrade
		scales     map[string]*grading.ScaleLevel
	}

	alertTables struct {
		sync.RWMutex
		configs map[string]*alert.CutConfig
		alerts  map[string]*alert.Alert
	}
)

func Open() (*DB, error) {
	db := &DB{
		academic: &academicTables{
			years:       make(map[string]*academic.AcademicYear),
			terms:       make(map[string]*academic.AcademicTerm),
			assignments: make(map[string]*academic.TeacherAssignment),
			enrollments: make(map[string]*academic.Enrollment),
		},
		grading: &gradingTables{
			components: make(map[string]*grading.EvaluationComponent),
			plans:      make(map[string]*grading.EvaluationPlan),
			activities: make(map[string]*grading.EvaluativeActivity),
			grades:     make(map[string]*grading.StudentGrade),
			scales:     make(map[string]*grading.ScaleLevel),
		},
		alert: &alertTables{
			configs: make(map[string]*alert.CutConfig),
			alerts:  make(map[string]*alert.Alert),
		},
	}
	return db, nil
}
