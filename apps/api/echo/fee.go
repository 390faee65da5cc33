package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/fee"
	"github.com/trezcool/mahudhurio/core/user"
)

type feeApi struct {
	svc     fee.Service
	userSvc user.Service
}

func registerFeeAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc fee.Service, userSvc user.Service) {
	api := feeApi{svc: svc, userSvc: userSvc}

	fg := g.Group("/fees", jwt, approved)
	fg.GET("", api.query)
	fg.POST("", api.create)

	dg := fg.Group("/:id", objectMiddleware(func(ctx context.Context, id string) (interface{}, error) {
		return svc.GetByID(ctx, id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func ctxObjectFee(ctx echo.Context) (fee.Fee, error) {
	f, ok := ctx.Get(contextObjectKey).(fee.Fee)
	if !ok {
		return fee.Fee{}, errors.Wrap(errObjNotFoundInCtx, "retrieving fee from context")
	}
	return f, nil
}

func (api *feeApi) query(ctx echo.Context) error {
	filter := new(fee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []fee.Fee{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	fees, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	f, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	f, err := ctxObjectFee(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) update(ctx echo.Context) error {
	f, err := ctxObjectFee(ctx)
	if err != nil {
		return err
	}

	var data fee.UpdateFee
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	f, err = api.svc.Update(ctx.Request().Context(), actor, f, data)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) destroy(ctx echo.Context) error {
	f, err := ctxObjectFee(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, f.ID); err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	return ctx.NoContent(http.StatusNoContent)
}
