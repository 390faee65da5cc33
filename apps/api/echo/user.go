package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

const (
	passwordResetRequested = "If the email address supplied is associated with an account on this system, " +
		"an email will arrive in your inbox shortly with a code to reset your password."
	resetCodeVerified = "Code verified. You may now set a new password."
	passwordResetDone = "Password has been reset with the new password."
)

type userApi struct {
	svc user.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.Service) {
	api := userApi{svc: svc}

	ag := g.Group("/auth")

	// TODO: rate limit `/password-reset*`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.requestPasswordReset)
	ag.POST("/password-reset/verify", api.verifyResetCode)
	ag.POST("/password-reset/confirm", api.confirmPasswordReset)

	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func registerUserAPI(g *echo.Group, jwt, approved echo.MiddlewareFunc, svc user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users", jwt)

	mg := ug.Group("/me", approved)
	mg.PUT("", api.updateMe)
	mg.GET("/preferences", api.preferences)
	mg.PUT("/preferences", api.updatePreferences)

	// pending users may see their own account.
	// registered after the `/me` group, whose catch-all routes would shadow it.
	ug.GET("/me", api.me)

	admin := adminMiddleware(svc)
	ag := ug.Group("", approved, admin)
	ag.GET("", api.query)

	dg := ag.Group("/:id", objectMiddleware(func(ctx context.Context, id string) (interface{}, error) {
		return svc.GetByID(ctx, id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/approve", api.approve)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func ctxObjectUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errObjNotFoundInCtx, "retrieving user from context")
	}
	return usr, nil
}

// Auth handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, User: usr})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) requestPasswordReset(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetRequested})
}

func (api *userApi) verifyResetCode(ctx echo.Context) error {
	var data user.VerifyResetCode
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyResetCode")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.VerifyResetCode(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "verifying reset code")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: resetCodeVerified})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetDone})
}

// Account handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(usr); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) preferences(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	prefs, err := api.svc.GetPreferences(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "getting preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *userApi) updatePreferences(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdatePreferences
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePreferences")
	}

	prefs, err := api.svc.UpdatePreferences(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

// Admin handlers

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.IsApproved = boolQueryParam(ctx, "is_approved")
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) approve(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err = api.svc.Approve(ctx.Request().Context(), actor, usr.ID)
	if err != nil {
		return errors.Wrap(err, "approving user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	// ctxUser cannot delete themselves
	actor, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == actor.ID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
