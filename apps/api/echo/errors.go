package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classboom/classboom/core"
	"github.com/classboom/classboom/core/activation"
	"github.com/classboom/classboom/core/school"
	"github.com/classboom/classboom/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSchoolNotFound       = echo.NewHTTPError(http.StatusNotFound, school.ErrNotFound.Error())
	errInvalidToken         = echo.NewHTTPError(http.StatusNotFound, "invalid or expired activation link")
	errUpstream             = echo.NewHTTPError(http.StatusBadGateway, "service temporarily unavailable, please try again later")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			code, message = mapDomainError(err)
			if code != 0 {
				if code == http.StatusBadGateway {
					logger.Error("upstream failure", err, contextUser(ctx))
				}
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainError returns the response of the known core errors, code 0 for the others.
func mapDomainError(err error) (int, interface{}) {
	if activation.IsExternalFailure(err) {
		return errUpstream.Code, errUpstream.Message
	}
	if activation.IsNotFoundOrExpired(err) {
		return errInvalidToken.Code, errInvalidToken.Message
	}

	switch cause := errors.Cause(err); cause {
	case activation.ErrStudentCodeMismatch:
		return http.StatusBadRequest, map[string]string{"student_code": cause.Error()}
	case activation.ErrAlreadyActivated:
		return http.StatusConflict, cause.Error()
	case activation.ErrPrincipalNotFound, activation.ErrUnknownKind, school.ErrNotFound:
		return http.StatusNotFound, cause.Error()
	case user.ErrInvalidCredentials:
		return errAuthenticationFailed.Code, errAuthenticationFailed.Message
	case user.ErrAccountDeactivated:
		return errAccountDeactivated.Code, errAccountDeactivated.Message
	}
	return 0, nil
}

// contextUser returns the authed user as far as the claims tell, for error reports.
func contextUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.SchoolID = claims.SchoolID
		usr.Name = claims.Name
		usr.Email = claims.Email
	}
	return usr
}
