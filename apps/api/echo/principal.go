package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
)

type principalApi struct {
	svc activation.Service
}

func registerPrincipalAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc activation.Service, schools school.Service) {
	api := principalApi{svc: svc}

	pg := g.Group("/principals/:kind", jwt, adminMiddleware(), claimsTenantMiddleware(schools))
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/invite", api.invite)
	pg.DELETE("/:id/invite", api.revoke)
}

// scope returns the resolved school and the kind named in the path.
func scope(ctx echo.Context) (school.School, activation.PrincipalKind, error) {
	sch, err := contextSchool(ctx)
	if err != nil {
		return school.School{}, "", err
	}
	kind, err := activation.ParseKind(ctx.Param("kind"))
	if err != nil {
		return school.School{}, "", errHttpNotFound
	}
	return sch, kind, nil
}

// Handlers

func (api *principalApi) create(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	var data activation.NewPrincipal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPrincipal")
	}

	p, err := api.svc.CreatePrincipal(ctx.Request().Context(), sch.ID, kind, data)
	if err != nil {
		return errors.Wrap(err, "creating principal")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *principalApi) retrieve(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.GetPrincipal(ctx.Request().Context(), sch.ID, kind, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding principal")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *principalApi) invite(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Issue(ctx.Request().Context(), sch.ID, kind, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *principalApi) revoke(ctx echo.Context) error {
	sch, kind, err := scope(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Revoke(ctx.Request().Context(), sch.ID, kind, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "revoking invitation")
	}
	return ctx.NoContent(http.StatusNoContent)
}
