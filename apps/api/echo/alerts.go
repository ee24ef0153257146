package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/escolaris/notas/core/alert"
)

type alertApi struct {
	svc      *alert.Service
	validate *validator.Validate
}

func registerAlertAPI(g *echo.Group, svc *alert.Service, validate *validator.Validate) {
	api := alertApi{
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/terms/:id/cut-config")
	tg.PUT("", api.upsertCutConfig)
	tg.GET("", api.getCutConfig)

	g.POST("/preventive-cuts", api.executeCut)

	ag := g.Group("/alerts")
	ag.GET("", api.query)
	ag.PATCH("/:id", api.update)
}

// Handlers

func (api *alertApi) upsertCutConfig(ctx echo.Context) error {
	var data alert.NewCutConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCutConfig")
	}
	data.AcademicTermID = ctx.Param("id") // the path owns the term
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cfg, err := api.svc.UpsertConfig(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting cut config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *alertApi) getCutConfig(ctx echo.Context) error {
	cfg, err := api.svc.GetConfig(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *alertApi) executeCut(ctx echo.Context) error {
	var data alert.ExecuteCutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExecuteCutRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	summary, err := api.svc.ExecuteCut(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *alertApi) query(ctx echo.Context) error {
	filter := new(alert.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	alerts, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	return ctx.JSON(http.StatusOK, alerts)
}

func (api *alertApi) update(ctx echo.Context) error {
	var data alert.UpdateAlert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAlert")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	al, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, al)
}
