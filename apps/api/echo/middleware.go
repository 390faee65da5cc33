package echoapi

import (
	"context"
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

const (
	contextObjectKey = "object"
	cronKeyHeader    = "X-Cron-Key"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

// approvedMiddleware lets through approved users only. It checks the stored User, not the token,
// so approvals take effect without a new login.
func approvedMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsApproved {
				return errNotApproved
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// cronKeyMiddleware guards the job triggers. No configured key means no access.
func cronKeyMiddleware() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + cronKeyHeader,
		Validator: func(key string, ctx echo.Context) (bool, error) {
			want := core.Conf.CronKey
			if want == "" || subtle.ConstantTimeCompare([]byte(key), []byte(want)) != 1 {
				return false, errInvalidCronKey
			}
			return true, nil
		},
	})
}

// objectMiddleware loads the entity identified by the `:id` path param into the context.
func objectMiddleware(find func(ctx context.Context, id string) (interface{}, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := find(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding object by ID")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}
