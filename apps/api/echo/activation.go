package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/services/ratelimit"
)

type activationApi struct {
	svc activation.Service
}

// registerActivationAPI mounts the public activation endpoints. The school comes from the X-School header.
func registerActivationAPI(
	g *echo.Group,
	svc activation.Service,
	schools school.Service,
	limiter ratelimit.Limiter,
	logger core.Logger,
) {
	api := activationApi{svc: svc}

	ag := g.Group("/activate/:kind/:token", rateLimitMiddleware(limiter, logger), headerTenantMiddleware(schools))
	ag.GET("", api.validate)
	ag.POST("", api.activate)
}

type (
	ValidateResponse struct {
		Kind       activation.PrincipalKind `json:"kind"`
		Name       string                   `json:"name"`
		Email      string                   `json:"email"`
		SchoolName string                   `json:"school_name"`
	}

	ActivateResponse struct {
		Principal activation.Principal `json:"principal"`
		UserID    string               `json:"user_id"`
		Email     string               `json:"email"`
	}
)

// Handlers

func (api *activationApi) validate(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.Validate(ctx.Request().Context(), sch.ID, kind, ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "validating token")
	}
	return ctx.JSON(http.StatusOK, ValidateResponse{Kind: p.Kind, Name: p.Name, Email: p.Email, SchoolName: sch.Name})
}

func (api *activationApi) activate(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	var data activation.Credentials
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	act, err := api.svc.Activate(ctx.Request().Context(), sch.ID, kind, ctx.Param("token"), data)
	if err != nil {
		return errors.Wrap(err, "activating account")
	}
	return ctx.JSON(http.StatusCreated, ActivateResponse{Principal: act.Principal, UserID: act.User.ID, Email: act.User.Email})
}
