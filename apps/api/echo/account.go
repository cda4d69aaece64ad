package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/user"
)

type accountApi struct {
	conf       *core.Config
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		conf:       deps.Conf,
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/account")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/logout", api.logout, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.POST("/change-password", api.changePassword, jwt)
	ag.POST("/register", api.register, jwt, adminMiddleware())
	ag.GET("/users", api.queryUsers, jwt, adminMiddleware())
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx, data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.tokenResponse(ctx, usr.Username, GetUserClaims(api.conf, usr))
}

func (api *accountApi) tokenResponse(ctx echo.Context, uname string, claims *Claims) error {
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:      token,
		Expiration: time.Unix(claims.ExpiresAt, 0).UTC(),
		Username:   uname,
	})
}

func (api *accountApi) logout(ctx echo.Context) error {
	// tokens are stateless: the client drops it
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully."})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, claims, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:      token,
		Expiration: time.Unix(claims.ExpiresAt, 0).UTC(),
		Username:   claims.Username,
	})
}

func (api *accountApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	data.Username = usr.Username
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if _, err = api.svc.SetPassword(ctx.Request().Context(), usr.Username, data.NewPassword); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully."})
}

func (api *accountApi) queryUsers(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token      string    `json:"token"`
		Expiration time.Time `json:"expiration"`
		Username   string    `json:"username"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
