package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// maxWebhookBody caps what is read from Stripe before the signature check.
const maxWebhookBody = 64 << 10

// Payments is the checkout flow used by PaymentHandler.
// *service.CheckoutService satisfies it.
type Payments interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	CompleteCheckout(ctx context.Context, eventID string, sess *stripe.CheckoutSession) error
}

type PaymentHandler struct {
	Payments      Payments
	WebhookSecret string
}

func NewPaymentHandler(p Payments, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{Payments: p, WebhookSecret: webhookSecret}
}

type checkoutReq struct {
	BookingID string `json:"booking_id"`
	RoomID    uint64 `json:"room_id"`
	Nights    int    `json:"nights"`
	PromoCode string `json:"promo_code"`
}

// Checkout opens a Stripe Checkout session for the authenticated user.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Payments.Checkout(ctx, service.CheckoutRequest{
		UserID:    uid,
		BookingID: req.BookingID,
		RoomID:    req.RoomID,
		Nights:    req.Nights,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Webhook receives Stripe events.  Only completed, paid checkout sessions
// matter; everything else is acknowledged and ignored.  A 5xx makes Stripe
// deliver the event again.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.WithContext(c.Request().Context()).Warn("stripe webhook rejected", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature", "code": "INVALID_SIGNATURE"})
	}

	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	var sess stripe.CheckoutSession
	if ev.Data == nil || json.Unmarshal(ev.Data.Raw, &sess) != nil {
		return badRequest(c, "malformed checkout session")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Payments.CompleteCheckout(ctx, ev.ID, &sess); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
