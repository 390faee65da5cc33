package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/notification"
)

type notificationApi struct {
	svc notification.Service
}

type (
	CountResponse struct {
		Count int `json:"count"`
	}
)

func registerNotificationAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc notification.Service) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications", jwt, approved)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.PUT("/read-all", api.markAllRead)
	ng.PUT("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy)
}

func (api *notificationApi) query(ctx echo.Context) error {
	var filter notification.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}

	notifs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	count, err := api.svc.UnreadCount(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	if err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	count, err := api.svc.MarkAllRead(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
