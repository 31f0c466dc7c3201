package handler

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// statusFromError maps service and repository errors to an HTTP status and
// a machine readable code.  Anything unrecognised is a 500.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotApplicable):
		return http.StatusBadRequest, "NOT_APPLICABLE"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, "INVALID_TOKEN"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// respondError writes err as {"error", "code"}.  Server errors are logged
// and sent to Sentry; their message never reaches the client.
func respondError(c echo.Context, err error) error {
	status, code := statusFromError(err)
	body := echo.Map{"error": err.Error(), "code": code}

	var ineligible *service.IneligibleError
	if errors.As(err, &ineligible) {
		body["reason"] = ineligible.Reason
	}
	if errors.Is(err, service.ErrForbidden) {
		body["error"] = "forbidden"
	}
	if status >= http.StatusInternalServerError {
		body["error"] = "internal server error"
		ctx := c.Request().Context()
		logger.WithContext(ctx).Error("request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		reportingHub(c).CaptureException(err)
	}
	return c.JSON(status, body)
}

// reportingHub prefers the per-request hub installed by sentryecho, which
// carries the request on its scope.
func reportingHub(c echo.Context) *sentry.Hub {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		return hub
	}
	if hub := sentry.GetHubFromContext(c.Request().Context()); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "INVALID_INPUT"})
}
