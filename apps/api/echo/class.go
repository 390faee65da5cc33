package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/user"
)

type classApi struct {
	svc     class.Service
	userSvc user.Service
}

func registerClassAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc class.Service, userSvc user.Service) {
	api := classApi{svc: svc, userSvc: userSvc}
	admin := adminMiddleware(userSvc)

	cg := g.Group("/classes", jwt, approved)
	cg.GET("", api.query)
	cg.POST("", api.create, admin)

	dg := cg.Group("/:id", objectMiddleware(func(ctx context.Context, id string) (interface{}, error) {
		return svc.GetByID(ctx, id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, admin)
	dg.DELETE("", api.destroy, admin)
	dg.POST("/upgrade", api.upgrade, admin)
}

func ctxObjectClass(ctx echo.Context) (class.Class, error) {
	cls, ok := ctx.Get(contextObjectKey).(class.Class)
	if !ok {
		return class.Class{}, errors.Wrap(errObjNotFoundInCtx, "retrieving class from context")
	}
	return cls, nil
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(class.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []class.Class{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(cls); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err = api.svc.Update(ctx.Request().Context(), actor, cls, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) upgrade(ctx echo.Context) error {
	cls, err := ctxObjectClass(ctx)
	if err != nil {
		return err
	}

	var data class.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.Upgrade(ctx.Request().Context(), actor, cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "upgrading class")
	}
	return ctx.JSON(http.StatusCreated, res)
}
