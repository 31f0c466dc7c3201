package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// RegisterPromo mounts promo code management for admins and employees,
// plus the two open endpoints guests use while booking.  The static paths
// take precedence over /:id.
func RegisterPromo(e *echo.Echo, p *handler.PromoHandler, codec *utils.TokenCodec, limiter, cache echo.MiddlewareFunc) {
	e.GET("/promo-codes/public", p.ListPublic, cache)
	e.POST("/promo-codes/apply", p.Apply, limiter)

	staff := []echo.MiddlewareFunc{
		middleware.JWTAuth(codec),
		middleware.RequireRole(model.RoleAdmin, model.RoleEmployee),
	}
	e.GET("/promo-codes", p.List, staff...)
	e.POST("/promo-codes", p.Create, staff...)
	e.GET("/promo-codes/:id", p.Get, staff...)
	e.PUT("/promo-codes/:id", p.Update, staff...)
	e.DELETE("/promo-codes/:id", p.Delete, staff...)
}
