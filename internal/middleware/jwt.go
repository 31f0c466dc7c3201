package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's
// identity in the Echo context (see identity.go).  Every verification
// failure yields the same 401 body; the kind of failure is only logged.
func JWTAuth(codec *utils.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHORIZED"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := codec.Verify(raw)
			if err != nil {
				logger.WithContext(c.Request().Context()).Info("access token rejected",
					"kind", failureKind(err), "path", c.Path())
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token", "code": "INVALID_TOKEN"})
			}

			setIdentity(c, claims)
			return next(c)
		}
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return "expired"
	case errors.Is(err, utils.ErrTokenSignature):
		return "signature"
	default:
		return "malformed"
	}
}
