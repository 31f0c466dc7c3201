package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// PromoPayload is the loosely typed create/update body.  Numbers may arrive
// as JSON numbers or numeric strings; the validator settles the types.
type PromoPayload struct {
	Code          any   `json:"code"`
	DiscountType  any   `json:"discount_type"`
	DiscountValue any   `json:"discount_value"`
	StartDate     any   `json:"start_date"`
	EndDate       any   `json:"end_date"`
	UsageLimit    any   `json:"usage_limit"`
	HotelID       any   `json:"hotel_id"`
	Active        *bool `json:"active"`
}

// PromoInput is a payload that passed validation.
type PromoInput struct {
	Code          string
	DiscountType  model.DiscountType
	DiscountValue float64
	StartDate     model.Date
	EndDate       model.Date
	UsageLimit    *int64
	HotelID       *uint64
	Active        *bool
}

// HotelChecker answers whether a hotel id refers to an existing hotel.
type HotelChecker interface {
	Exists(ctx context.Context, hotelID uint64) (bool, error)
}

// PromoValidator runs the field checks on promo payloads.
type PromoValidator struct {
	Hotels HotelChecker
}

// Validate checks the payload in order and returns the first failure:
// code, discount type, discount value, dates, usage limit, hotel.  The
// hotel check is skipped when skipHotel is set, which is how an employee's
// forced scope bypasses whatever hotel_id the body carried.
func (v PromoValidator) Validate(ctx context.Context, p PromoPayload, skipHotel bool) (*PromoInput, error) {
	var in PromoInput

	code, ok := p.Code.(string)
	if !ok || strings.TrimSpace(code) == "" {
		return nil, invalid("code", "must be a non-empty string")
	}
	in.Code = strings.TrimSpace(code)

	dt, _ := p.DiscountType.(string)
	switch model.DiscountType(strings.ToLower(strings.TrimSpace(dt))) {
	case model.DiscountPercentage:
		in.DiscountType = model.DiscountPercentage
	case model.DiscountFixed:
		in.DiscountType = model.DiscountFixed
	default:
		return nil, invalid("discount_type", "must be percentage or fixed")
	}

	val, ok := number(p.DiscountValue)
	if !ok || val <= 0 {
		return nil, invalid("discount_value", "must be a positive number")
	}
	if in.DiscountType == model.DiscountPercentage && val > 100 {
		return nil, invalid("discount_value", "percentage cannot exceed 100")
	}
	in.DiscountValue = val

	start, err := date(p.StartDate)
	if err != nil {
		return nil, invalid("start_date", err.Error())
	}
	end, err := date(p.EndDate)
	if err != nil {
		return nil, invalid("end_date", err.Error())
	}
	if end.Before(start) {
		return nil, invalid("end_date", "must not be before start_date")
	}
	in.StartDate, in.EndDate = start, end

	if present(p.UsageLimit) {
		n, ok := number(p.UsageLimit)
		if !ok || n <= 0 || n != math.Trunc(n) || n > math.MaxInt32 {
			return nil, invalid("usage_limit", "must be a positive integer")
		}
		limit := int64(n)
		in.UsageLimit = &limit
	}

	if !skipHotel && present(p.HotelID) {
		n, ok := number(p.HotelID)
		if !ok || n <= 0 || n != math.Trunc(n) {
			return nil, invalid("hotel_id", "must be a positive integer")
		}
		id := uint64(n)
		exists, err := v.Hotels.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, invalid("hotel_id", "hotel does not exist")
		}
		in.HotelID = &id
	}

	in.Active = p.Active
	return &in, nil
}

// present treats null and the empty string as "not provided".
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

// ParseAmount reads a money amount from a decoded JSON value, accepting
// numbers and numeric strings like the promo payload does.  A missing value
// is zero.
func ParseAmount(field string, v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	f, ok := number(v)
	if !ok {
		return 0, invalid(field, "must be a number")
	}
	return f, nil
}

var (
	errDateRequired = errors.New("is required")
	errDateFormat   = errors.New("must be a valid YYYY-MM-DD date")
)

func date(v any) (model.Date, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return model.Date{}, errDateRequired
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, errDateFormat
	}
	return d, nil
}
