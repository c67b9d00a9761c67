package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/mission"
	"github.com/cinetwork/cin/backend/core/organization"
	"github.com/cinetwork/cin/backend/core/reward"
	"github.com/cinetwork/cin/backend/core/submission"
	"github.com/cinetwork/cin/backend/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errFeatureDisabled      = echo.NewHTTPError(http.StatusForbidden, "this feature is not enabled for your organization")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errNoOrganization       = echo.NewHTTPError(http.StatusBadRequest, "you do not belong to an organization")

	errObjNotFoundInCtx = errors.New("object not found in echo.Context")

	// domain errors answered with a 404
	notFoundErrors = []error{
		user.ErrNotFound,
		organization.ErrNotFound,
		organization.ErrGrantNotFound,
		mission.ErrNotFound,
		submission.ErrNotFound,
		reward.ErrNotFound,
		reward.ErrRedemptionNotFound,
	}

	// domain errors answered with a 409: the request conflicts with the current state
	conflictErrors = []error{
		organization.ErrInUse,
		organization.ErrGrantDecided,
		mission.ErrInUse,
		submission.ErrAlreadyReviewed,
		reward.ErrInUse,
		reward.ErrAlreadyReviewed,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
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
			switch {
			case isAny(cause, notFoundErrors):
				code = http.StatusNotFound
				message = cause.Error()
			case isAny(cause, conflictErrors):
				code = http.StatusConflict
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var ident core.Identity
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					ident = core.Identity{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
				}
				logger.Error(msg, errors.Wrap(err, msg), ident)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
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

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if err == target {
			return true
		}
	}
	return false
}
