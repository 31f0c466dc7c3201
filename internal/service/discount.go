package service

import (
	"math"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// Reason explains why a promo code is not eligible.
type Reason string

const (
	ReasonWrongHotel   Reason = "wrong_hotel"
	ReasonNotActiveYet Reason = "not_active_yet"
	ReasonExpired      Reason = "expired"
	ReasonDisabled     Reason = "disabled"
	ReasonLimitReached Reason = "limit_reached"
)

// Message is the client-facing text.  Both ends of the date window read
// the same.
func (r Reason) Message() string {
	switch r {
	case ReasonWrongHotel:
		return "promo code is not valid for this hotel"
	case ReasonNotActiveYet, ReasonExpired:
		return "promo code is not active"
	case ReasonDisabled:
		return "promo code is disabled"
	case ReasonLimitReached:
		return "promo code usage limit reached"
	}
	return "promo code is not applicable"
}

// EvalContext is what a promo is evaluated against.  TargetHotelID nil
// means no hotel context, which only hotel-agnostic codes match.
type EvalContext struct {
	Subtotal      float64
	TargetHotelID *uint64
	Today         model.Date
}

type Evaluation struct {
	Eligible       bool
	DiscountAmount float64
	Reason         Reason
}

// Evaluate decides eligibility and, when eligible, the discount.  Checks
// run in a fixed order and the first failure is reported: hotel scope,
// date window, active flag, usage limit.
func Evaluate(p model.PromoCode, ec EvalContext) Evaluation {
	if p.HotelID != nil && (ec.TargetHotelID == nil || *ec.TargetHotelID != *p.HotelID) {
		return Evaluation{Reason: ReasonWrongHotel}
	}
	if ec.Today.Before(p.StartDate) {
		return Evaluation{Reason: ReasonNotActiveYet}
	}
	if ec.Today.After(p.EndDate) {
		return Evaluation{Reason: ReasonExpired}
	}
	if !p.Active {
		return Evaluation{Reason: ReasonDisabled}
	}
	if p.Exhausted() {
		return Evaluation{Reason: ReasonLimitReached}
	}
	return Evaluation{Eligible: true, DiscountAmount: DiscountAmount(p, ec.Subtotal)}
}

// DiscountAmount never exceeds the subtotal and is zero for a non-positive
// subtotal.
func DiscountAmount(p model.PromoCode, subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	switch p.DiscountType {
	case model.DiscountPercentage:
		return roundCents(subtotal * p.DiscountValue / 100)
	case model.DiscountFixed:
		return math.Min(subtotal, p.DiscountValue)
	}
	return 0
}

func roundCents(v float64) float64 { return math.Round(v*100) / 100 }
