// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// PromoRedeemedQueue carries one message per promo code use confirmed by a
// completed payment.
const PromoRedeemedQueue = "promo.redeemed"

// PromoRedeemedEvent is published after a checkout session that used a
// promo code has been paid and the code's usage count incremented.
type PromoRedeemedEvent struct {
	PromoCodeID      uint64 `json:"promo_code_id"`
	Code             string `json:"code"`
	UserID           uint64 `json:"user_id"`
	BookingID        string `json:"booking_id"`
	SessionID        string `json:"session_id"`
	AmountTotalCents int64  `json:"amount_total_cents"`
	Currency         string `json:"currency"`
	RedeemedAt       string `json:"redeemed_at"`
}
