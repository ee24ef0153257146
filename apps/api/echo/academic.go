package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/escolaris/notas/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, svc *academic.Service) {
	api := academicApi{svc: svc}

	g.GET("/years/:id/term-weights", api.checkTermWeights)
}

// checkTermWeights reports whether the year's term weights add up to 100.
// A total off 100 responds 400 but still carries the check body so callers can
// show the actual total.
func (api *academicApi) checkTermWeights(ctx echo.Context) error {
	check, err := api.svc.CheckTermWeights(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking term weights")
	}

	status := http.StatusOK
	if !check.Valid {
		status = http.StatusBadRequest
	}
	return ctx.JSON(status, check)
}
