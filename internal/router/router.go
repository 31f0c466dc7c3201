package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication and
// are not tied to a feature: currently only the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth mounts the account and session endpoints.  Login and
// refresh sit behind the rate limiter; logout never does, so a throttled
// client can still end its session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *utils.TokenCodec, limiter echo.MiddlewareFunc) {
	users := e.Group("/users")
	users.POST("/register", a.Register, limiter)
	users.POST("/login", a.Login, limiter)
	users.GET("/me", a.Me, middleware.JWTAuth(codec))

	refresh := e.Group("/refresh")
	refresh.POST("", a.Refresh, limiter)
	refresh.POST("/logout", a.Logout)
	refresh.POST("/logout-all", a.LogoutAll, middleware.JWTAuth(codec))
	refresh.POST("/cleanup", a.Cleanup, middleware.JWTAuth(codec), middleware.RequireRole(model.RoleAdmin))
}
