package tests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	. "github.com/escolaris/notas/apps/api/echo"
	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/core/alert"
	"github.com/escolaris/notas/core/grading"
	dummydb "github.com/escolaris/notas/storage/database/dummy"
)

type fixture struct {
	server Server

	academicRepo *dummydb.AcademicRepository
	gradingRepo  *dummydb.GradingRepository
	alertRepo    *dummydb.AlertRepository

	academicSvc *academic.Service
	gradingSvc  *grading.Service
	alertSvc    *alert.Service
}

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Log(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Log(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Log(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Log(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg, args) }

type nopMailService struct{}

func (nopMailService) SendMessages(...*core.EmailMessage) {}

func setup(t *testing.T) *fixture {
	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)

	fix := &fixture{
		academicRepo: dummydb.NewAcademicRepository(db),
		gradingRepo:  dummydb.NewGradingRepository(db),
		alertRepo:    dummydb.NewAlertRepository(db),
	}

	// set up services
	fix.academicSvc = academic.NewService(fix.academicRepo)
	fix.gradingSvc = grading.NewService(fix.gradingRepo, fix.academicRepo)
	fix.alertSvc = alert.NewService(fix.alertRepo, fix.academicRepo, fix.gradingSvc, nopMailService{}, testLogger{t})

	// set up validators
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	conf := &core.Config{Env: "TEST", TestMode: true}

	// set up server
	fix.server = NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         testLogger{t},
		Validate:       validate,
		Translator:     translator,
		AcademicSvc:    fix.academicSvc,
		GradingSvc:     fix.gradingSvc,
		AlertSvc:       fix.alertSvc,
	})
	return fix
}

func (fix *fixture) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fix.server.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeObj() failed: %v; body: %s", err, rec.Body.String())
	}
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) {
	t.Helper()
	if rec.Code != wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; body: %s", rec.Code, wantCode, rec.Body.String())
	}
}

// seed is the common school fixture: a 4-term year, one teaching assignment,
// one active enrollment, two plan components (60/40) and the national scale.
type seed struct {
	year       academic.AcademicYear
	terms      []academic.AcademicTerm
	assignment academic.TeacherAssignment
	enrollment academic.Enrollment
	compExams  grading.EvaluationComponent
	compHW     grading.EvaluationComponent
}

func (fix *fixture) seedSchool(t *testing.T) *seed {
	t.Helper()

	s := &seed{}
	s.year = fix.academicRepo.AddYear(academic.AcademicYear{InstitutionID: "inst-1", Year: 2026})
	for i := 1; i <= 4; i++ {
		s.terms = append(s.terms, fix.academicRepo.AddTerm(academic.AcademicTerm{
			AcademicYearID:   s.year.ID,
			Name:             "Periodo",
			Order:            i,
			WeightPercentage: 25,
			Kind:             academic.TermOrdinary,
		}))
	}
	s.assignment = fix.academicRepo.AddAssignment(academic.TeacherAssignment{
		TeacherID:      "teacher-1",
		TeacherEmail:   "teacher@example.com",
		SubjectID:      "subj-math",
		SubjectName:    "Matemáticas",
		GroupID:        "group-7a",
		AcademicYearID: s.year.ID,
	})
	s.enrollment = fix.academicRepo.AddEnrollment(academic.Enrollment{
		StudentID:        "student-1",
		StudentFirstName: "Ana",
		StudentLastName:  "Gómez",
		GroupID:          "group-7a",
		AcademicYearID:   s.year.ID,
		Status:           academic.EnrollmentActive,
	})
	s.compExams = fix.gradingRepo.AddComponent(grading.EvaluationComponent{InstitutionID: "inst-1", Code: "EXAM", Name: "Exámenes"})
	s.compHW = fix.gradingRepo.AddComponent(grading.EvaluationComponent{InstitutionID: "inst-1", Code: "HW", Name: "Tareas"})

	for _, lvl := range []grading.ScaleLevel{
		{Level: "BAJO", MinScore: 1.0, MaxScore: 2.9},
		{Level: "BASICO", MinScore: 3.0, MaxScore: 3.9},
		{Level: "ALTO", MinScore: 4.0, MaxScore: 4.4},
		{Level: "SUPERIOR", MinScore: 4.5, MaxScore: 5.0},
	} {
		lvl.InstitutionID = "inst-1"
		fix.gradingRepo.AddScaleLevel(lvl)
	}
	return s
}
