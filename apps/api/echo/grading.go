package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/grading"
)

type gradingApi struct {
	svc      *grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, svc *grading.Service, validate *validator.Validate) {
	api := gradingApi{
		svc:      svc,
		validate: validate,
	}

	g.POST("/grades", api.upsertGrade)
	g.POST("/activities/:id/grades/bulk", api.bulkUpsertGrades)

	eg := g.Group("/enrollments/:id")
	eg.GET("/component-average", api.componentAverage)
	eg.GET("/term-grade", api.termGrade)
	eg.GET("/annual-grade", api.annualGrade)

	g.GET("/performance-level", api.performanceLevel)

	g.PUT("/plans", api.upsertPlan)
	g.GET("/plans", api.getPlan)
}

// Handlers

func (api *gradingApi) upsertGrade(ctx echo.Context) error {
	var data grading.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.UpsertGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *gradingApi) bulkUpsertGrades(ctx echo.Context) error {
	var data grading.BulkGrades
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkGrades")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	results, err := api.svc.BulkUpsertGrades(ctx.Request().Context(), ctx.Param("id"), data.Grades)
	if err != nil {
		return errors.Wrap(err, "bulk upserting grades")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *gradingApi) componentAverage(ctx echo.Context) error {
	termID, componentID := ctx.QueryParam("term"), ctx.QueryParam("component")
	if termID == "" || componentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "term/component", Error: "query parameters are required"})
	}
	cutoff, err := parseCutoff(ctx.QueryParam("cutoff"))
	if err != nil {
		return err
	}

	avg, err := api.svc.ComponentAverage(ctx.Request().Context(), ctx.Param("id"), termID, componentID, cutoff)
	if err != nil {
		return errors.Wrap(err, "computing component average")
	}
	return ctx.JSON(http.StatusOK, averageResponse{Average: avg})
}

func (api *gradingApi) termGrade(ctx echo.Context) error {
	assignmentID, termID := ctx.QueryParam("assignment"), ctx.QueryParam("term")
	if assignmentID == "" || termID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "assignment/term", Error: "query parameters are required"})
	}
	cutoff, err := parseCutoff(ctx.QueryParam("cutoff"))
	if err != nil {
		return err
	}

	res, err := api.svc.TermGrade(ctx.Request().Context(), ctx.Param("id"), assignmentID, termID, cutoff)
	if err != nil {
		return errors.Wrap(err, "computing term grade")
	}
	if res.Components == nil {
		res.Components = []grading.ComponentGrade{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) annualGrade(ctx echo.Context) error {
	assignmentID, yearID := ctx.QueryParam("assignment"), ctx.QueryParam("year")
	if assignmentID == "" || yearID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "assignment/year", Error: "query parameters are required"})
	}

	res, err := api.svc.AnnualGrade(ctx.Request().Context(), ctx.Param("id"), assignmentID, yearID)
	if err != nil {
		return errors.Wrap(err, "computing annual grade")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) performanceLevel(ctx echo.Context) error {
	institutionID := ctx.QueryParam("institution")
	score, err := strconv.ParseFloat(ctx.QueryParam("score"), 64)
	if institutionID == "" || err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "institution/score", Error: "query parameters are required"})
	}

	res, err := api.svc.ResolveLevel(ctx.Request().Context(), institutionID, score)
	if err != nil {
		return errors.Wrap(err, "resolving performance level")
	}
	if res == nil {
		// no band matched: the scale does not cover this score
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradingApi) upsertPlan(ctx echo.Context) error {
	var data grading.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.UpsertPlan(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *gradingApi) getPlan(ctx echo.Context) error {
	assignmentID, termID := ctx.QueryParam("assignment"), ctx.QueryParam("term")
	if assignmentID == "" || termID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "assignment/term", Error: "query parameters are required"})
	}

	plan, err := api.svc.GetPlan(ctx.Request().Context(), assignmentID, termID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, plan)
}

type averageResponse struct {
	Average null.Float64 `json:"average"`
}

// parseCutoff accepts an RFC3339 timestamp or a bare YYYY-MM-DD date.
func parseCutoff(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, core.NewValidationError(nil, core.FieldError{Field: "cutoff", Error: "must be RFC3339 or YYYY-MM-DD"})
}
