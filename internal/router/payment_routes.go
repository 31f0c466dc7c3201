package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// RegisterPayments mounts checkout for signed-in users and the Stripe
// webhook, which authenticates by signature instead of a bearer token.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, codec *utils.TokenCodec) {
	e.POST("/payments/checkout", p.Checkout, middleware.JWTAuth(codec))
	e.POST("/payments/webhook", p.Webhook)
}
