package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

type attendanceApi struct {
	svc     attendance.Service
	userSvc user.Service
}

func registerAttendanceAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc attendance.Service, userSvc user.Service) {
	api := attendanceApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/attendance", jwt, approved)
	ag.GET("", api.query)
	ag.POST("/bulk", api.bulkUpsert)

	dg := ag.Group("/:id", objectMiddleware(func(ctx context.Context, id string) (interface{}, error) {
		return svc.GetByID(ctx, id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func registerReportAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc attendance.Service) {
	api := attendanceApi{svc: svc}

	rg := g.Group("/reports", jwt, approved)
	rg.GET("/attendance", api.report)
}

func ctxObjectRecord(ctx echo.Context) (attendance.Record, error) {
	rec, ok := ctx.Get(contextObjectKey).(attendance.Record)
	if !ok {
		return attendance.Record{}, errors.Wrap(errObjNotFoundInCtx, "retrieving attendance from context")
	}
	return rec, nil
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var data attendance.QueryFilter
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	if err := data.Validate(); err != nil {
		return err
	}

	records, err := api.svc.Query(ctx.Request().Context(), data.Filter())
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) bulkUpsert(ctx echo.Context) error {
	var data attendance.BulkInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkInput")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	records, err := api.svc.BulkUpsert(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "upserting attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := ctxObjectRecord(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	rec, err := ctxObjectRecord(ctx)
	if err != nil {
		return err
	}

	var data attendance.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err = api.svc.Update(ctx.Request().Context(), actor, rec, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	rec, err := ctxObjectRecord(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, rec.ID); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	var data attendance.ReportQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportQuery")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	report, err := api.svc.GenerateReport(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating report")
	}
	return ctx.JSON(http.StatusOK, report)
}
