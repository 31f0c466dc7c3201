package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// CheckoutSessionCreator creates Stripe Checkout sessions.  The
// CheckoutSessions field of a stripe client.API satisfies it.
type CheckoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// RoomLookup resolves a room to its hotel and nightly price.
type RoomLookup interface {
	Room(ctx context.Context, roomID uint64) (*model.Room, error)
}

// PromoRedeemer is the promo side of checkout: quote before payment,
// consume after.
type PromoRedeemer interface {
	Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error)
	Redeem(ctx context.Context, promoID uint64) error
}

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	PublishPromoRedeemed(ctx context.Context, ev queue.PromoRedeemedEvent) error
}

// Deduper remembers processed webhook event ids.  Seen records id and
// reports true when it was already recorded; Forget drops it again so a
// failed delivery can be retried.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	// SessionTTL is how long a session, and the discount quoted into it,
	// stays payable.  Stripe accepts 30 minutes to 24 hours.
	SessionTTL time.Duration
}

const (
	minSessionTTL = 30 * time.Minute
	maxSessionTTL = 24 * time.Hour
)

func (c CheckoutConfig) sessionTTL() time.Duration {
	switch {
	case c.SessionTTL <= minSessionTTL:
		return minSessionTTL
	case c.SessionTTL > maxSessionTTL:
		return maxSessionTTL
	}
	return c.SessionTTL
}

// CheckoutService prices a stay, applies an optional promo code and opens a
// Stripe Checkout session.  It also settles completed sessions: that is the
// only place a promo code's usage count goes up.
type CheckoutService struct {
	Sessions  CheckoutSessionCreator
	Rooms     RoomLookup
	Promos    PromoRedeemer
	Publisher EventPublisher
	Dedupe    Deduper
	Cfg       CheckoutConfig
	Now       func() time.Time
}

type CheckoutRequest struct {
	UserID    uint64
	BookingID string
	RoomID    uint64
	Nights    int
	PromoCode string
}

type CheckoutResult struct {
	SessionID      string  `json:"session_id"`
	URL            string  `json:"url"`
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

const (
	metaBookingID = "booking_id"
	metaUserID    = "user_id"
	metaPromoID   = "promo_code_id"
	metaPromoCode = "promo_code"
)

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	switch {
	case req.BookingID == "":
		return nil, invalid("booking_id", "is required")
	case req.RoomID == 0:
		return nil, invalid("room_id", "is required")
	case req.Nights < 1:
		return nil, invalid("nights", "must be at least 1")
	}

	room, err := s.Rooms.Room(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("room %d: %w", req.RoomID, ErrNotFound)
		}
		return nil, err
	}
	res := &CheckoutResult{Subtotal: roundCents(room.PricePerNight * float64(req.Nights))}

	var promo *model.PromoCode
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		quote, err := s.Promos.Apply(ctx, ApplyRequest{Code: code, Subtotal: res.Subtotal, RoomID: &room.ID})
		if err != nil {
			return nil, err
		}
		promo = quote.Promo
		res.DiscountAmount = quote.DiscountAmount
	}
	res.Total = roundCents(res.Subtotal - res.DiscountAmount)
	cents := int64(math.Round(res.Total * 100))
	if cents <= 0 {
		return nil, invalid("promo_code", "discount leaves nothing to pay")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.Cfg.SuccessURL),
		CancelURL:         stripe.String(s.Cfg.CancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(s.now().Add(s.Cfg.sessionTTL()).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency()),
				UnitAmount: stripe.Int64(cents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Room %d, %d night(s)", room.ID, req.Nights)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata(metaBookingID, req.BookingID)
	params.AddMetadata(metaUserID, strconv.FormatUint(req.UserID, 10))
	if promo != nil {
		params.AddMetadata(metaPromoID, strconv.FormatUint(promo.ID, 10))
		params.AddMetadata(metaPromoCode, promo.Code)
	}

	sess, err := s.Sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	res.SessionID = sess.ID
	res.URL = sess.URL
	return res, nil
}

func (s *CheckoutService) currency() string {
	if s.Cfg.Currency == "" {
		return string(stripe.CurrencyUSD)
	}
	return strings.ToLower(s.Cfg.Currency)
}

// CompleteCheckout settles a paid session.  A promo code attached to the
// session is redeemed and a promo.redeemed event is published.  Redelivered
// events are skipped when a Deduper is configured.  A code that ran out
// between quote and payment is logged, not retried: the customer has
// already paid.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, eventID string, sess *stripe.CheckoutSession) error {
	log := logger.WithContext(ctx).With("stripe_event", eventID, "session_id", sess.ID)

	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		// Delayed payment methods complete later with async_payment_succeeded.
		return nil
	}
	raw := sess.Metadata[metaPromoID]
	if raw == "" {
		return nil
	}
	promoID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Warn("checkout metadata has malformed promo id", "value", raw)
		return nil
	}

	recorded := false
	if s.Dedupe != nil && eventID != "" {
		seen, err := s.Dedupe.Seen(ctx, eventID)
		switch {
		case err != nil:
			log.Warn("webhook dedupe unavailable", "error", err)
		case seen:
			log.Info("duplicate webhook ignored")
			return nil
		default:
			recorded = true
		}
	}

	if err := s.Promos.Redeem(ctx, promoID); err != nil {
		if errors.Is(err, ErrNotApplicable) || errors.Is(err, ErrNotFound) {
			log.Warn("promo not redeemed after payment", "promo_code_id", promoID, "error", err)
			return nil
		}
		if recorded {
			if ferr := s.Dedupe.Forget(context.WithoutCancel(ctx), eventID); ferr != nil {
				log.Warn("webhook dedupe forget failed", "error", ferr)
			}
		}
		return err
	}

	if s.Publisher == nil {
		return nil
	}
	userID, _ := strconv.ParseUint(sess.Metadata[metaUserID], 10, 64)
	ev := queue.PromoRedeemedEvent{
		PromoCodeID:      promoID,
		Code:             sess.Metadata[metaPromoCode],
		UserID:           userID,
		BookingID:        sess.Metadata[metaBookingID],
		SessionID:        sess.ID,
		AmountTotalCents: sess.AmountTotal,
		Currency:         string(sess.Currency),
		RedeemedAt:       s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Publisher.PublishPromoRedeemed(ctx, ev); err != nil {
		log.Error("publish promo.redeemed failed", "error", err)
	}
	return nil
}

func (s *CheckoutService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
