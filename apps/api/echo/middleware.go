package echoapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/services/ratelimit"
)

const (
	schoolHeader     = "X-School"
	contextSchoolKey = "school"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// claimsTenantMiddleware scopes authed requests to the school the token was issued for.
func claimsTenantMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sch, err := svc.Get(ctx.Request().Context(), claims.SchoolID)
			if err != nil {
				if errors.Cause(err) == school.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "finding claims school")
			}
			ctx.Set(contextSchoolKey, sch)
			return next(ctx)
		}
	}
}

// headerTenantMiddleware resolves the school named by the X-School header (id or slug).
func headerTenantMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sch, err := svc.Resolve(ctx.Request().Context(), ctx.Request().Header.Get(schoolHeader))
			if err != nil {
				if errors.Cause(err) == school.ErrNotFound {
					return errSchoolNotFound
				}
				return errors.Wrap(err, "resolving school")
			}
			ctx.Set(contextSchoolKey, sch)
			return next(ctx)
		}
	}
}

func contextSchool(ctx echo.Context) (school.School, error) {
	if sch, ok := ctx.Get(contextSchoolKey).(school.School); ok {
		return sch, nil
	}
	return school.School{}, errors.New("school not found in echo.Context")
}

// rateLimitMiddleware counts hits per client IP. Limiter failures let the request through.
func rateLimitMiddleware(limiter ratelimit.Limiter, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			res, err := limiter.Allow(ctx.Request().Context(), ctx.RealIP())
			if err != nil {
				logger.Warn("rate limiter unavailable", errors.Wrap(err, "checking rate limit"))
				return next(ctx)
			}

			h := ctx.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(ctx)
		}
	}
}
