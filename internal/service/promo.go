package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// PromoStore is the persistence the promo service needs.  *repository.PromoRepo
// satisfies it.
type PromoStore interface {
	Create(ctx context.Context, p *model.PromoCode) error
	GetByID(ctx context.Context, id uint64) (*model.PromoCode, error)
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
	List(ctx context.Context, f repository.PromoFilter) ([]*model.PromoCode, error)
	ListActive(ctx context.Context, hotelID *uint64, today model.Date) ([]*model.PromoCode, error)
	Update(ctx context.Context, p *model.PromoCode) error
	Delete(ctx context.Context, id uint64) error
	Redeem(ctx context.Context, id uint64) error
}

// HotelDirectory resolves hotels and rooms.  *repository.HotelRepo
// satisfies it.
type HotelDirectory interface {
	HotelChecker
	Room(ctx context.Context, roomID uint64) (*model.Room, error)
}

// Actor is the authenticated caller as seen by authorization checks.
type Actor struct {
	UserID  uint64
	Role    model.Role
	HotelID *uint64
}

// writeScope reports which hotel an actor's promo writes are pinned to.
// Admins are unrestricted (nil).  Employees are pinned to their hotel and
// cannot write at all without one.  Guests never write.
func (a Actor) writeScope() (*uint64, error) {
	switch a.Role {
	case model.RoleAdmin:
		return nil, nil
	case model.RoleEmployee:
		if a.HotelID == nil {
			return nil, fmt.Errorf("%w: employee has no assigned hotel", ErrForbidden)
		}
		return a.HotelID, nil
	case model.RoleUser:
		return nil, ErrForbidden
	}
	return nil, ErrForbidden
}

// canTouch reports whether the actor may modify p.
func (a Actor) canTouch(p *model.PromoCode) error {
	scope, err := a.writeScope()
	if err != nil {
		return err
	}
	if scope == nil {
		return nil
	}
	if p.HotelID == nil || *p.HotelID != *scope {
		return fmt.Errorf("%w: promo code belongs to another hotel", ErrForbidden)
	}
	return nil
}

// PromoService orchestrates promo code management and application.
type PromoService struct {
	Store     PromoStore
	Hotels    HotelDirectory
	Validator PromoValidator
	Now       func() time.Time
}

func NewPromoService(store PromoStore, hotels HotelDirectory) *PromoService {
	return &PromoService{
		Store:     store,
		Hotels:    hotels,
		Validator: PromoValidator{Hotels: hotels},
		Now:       time.Now,
	}
}

func (s *PromoService) today() model.Date {
	if s.Now == nil {
		return model.DateOf(time.Now())
	}
	return model.DateOf(s.Now())
}

// Create validates the payload and stores a new code.  An employee's code
// is always scoped to their own hotel.  Codes start active unless the
// payload says otherwise.
func (s *PromoService) Create(ctx context.Context, actor Actor, p PromoPayload) (*model.PromoCode, error) {
	scope, err := actor.writeScope()
	if err != nil {
		return nil, err
	}
	in, err := s.Validator.Validate(ctx, p, scope != nil)
	if err != nil {
		return nil, err
	}
	promo := &model.PromoCode{Active: true}
	assignInput(promo, in, scope)
	if err := s.Store.Create(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// Update replaces the editable fields of an existing code.  An unknown id
// is NotFound; a code outside the employee's hotel is Forbidden.
func (s *PromoService) Update(ctx context.Context, actor Actor, id uint64, p PromoPayload) (*model.PromoCode, error) {
	scope, err := actor.writeScope()
	if err != nil {
		return nil, err
	}
	promo, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.canTouch(promo); err != nil {
		return nil, err
	}
	in, err := s.Validator.Validate(ctx, p, scope != nil)
	if err != nil {
		return nil, err
	}
	assignInput(promo, in, scope)
	if promo.UsageLimit != nil && promo.UsageCount > *promo.UsageLimit {
		return nil, invalid("usage_limit", "cannot be lower than the current usage count")
	}
	if err := s.Store.Update(ctx, promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// Delete removes a code under the same rules as Update.
func (s *PromoService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if _, err := actor.writeScope(); err != nil {
		return err
	}
	promo, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := actor.canTouch(promo); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

// Get returns one code.  Employees may read their hotel's codes and the
// hotel-agnostic ones.
func (s *PromoService) Get(ctx context.Context, actor Actor, id uint64) (*model.PromoCode, error) {
	scope, err := actor.writeScope()
	if err != nil {
		return nil, err
	}
	promo, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope != nil && promo.HotelID != nil && *promo.HotelID != *scope {
		return nil, ErrForbidden
	}
	return promo, nil
}

// List returns every code for admins, and the own-hotel plus global codes
// for employees.
func (s *PromoService) List(ctx context.Context, actor Actor) ([]*model.PromoCode, error) {
	scope, err := actor.writeScope()
	if err != nil {
		return nil, err
	}
	return s.Store.List(ctx, repository.PromoFilter{HotelID: scope, IncludeGlobal: true})
}

// ListPublic lists the codes a guest can use today at hotelID.
func (s *PromoService) ListPublic(ctx context.Context, hotelID *uint64) ([]*model.PromoCode, error) {
	return s.Store.ListActive(ctx, hotelID, s.today())
}

// ApplyRequest previews a code against a price.  RoomID takes precedence
// over HotelID when resolving the target hotel.
type ApplyRequest struct {
	Code     string
	Subtotal float64
	RoomID   *uint64
	HotelID  *uint64
}

type ApplyResult struct {
	Promo          *model.PromoCode `json:"promo"`
	DiscountAmount float64          `json:"discount_amount"`
}

// Apply evaluates a code without consuming it.  usage_count only moves when
// a payment is confirmed, see Redeem.
func (s *PromoService) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, invalid("code", "is required")
	}
	promo, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("promo code %q: %w", code, ErrNotFound)
		}
		return nil, err
	}
	target, err := s.targetHotel(ctx, req)
	if err != nil {
		return nil, err
	}
	ev := Evaluate(*promo, EvalContext{Subtotal: req.Subtotal, TargetHotelID: target, Today: s.today()})
	if !ev.Eligible {
		return nil, &IneligibleError{Reason: ev.Reason}
	}
	return &ApplyResult{Promo: promo, DiscountAmount: ev.DiscountAmount}, nil
}

func (s *PromoService) targetHotel(ctx context.Context, req ApplyRequest) (*uint64, error) {
	if req.RoomID != nil {
		room, err := s.Hotels.Room(ctx, *req.RoomID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("room %d: %w", *req.RoomID, ErrNotFound)
			}
			return nil, err
		}
		return &room.HotelID, nil
	}
	return req.HotelID, nil
}

// Redeem consumes one use of the code after a confirmed payment.
func (s *PromoService) Redeem(ctx context.Context, promoID uint64) error {
	err := s.Store.Redeem(ctx, promoID)
	if errors.Is(err, repository.ErrUsageLimitReached) {
		return &IneligibleError{Reason: ReasonLimitReached}
	}
	return err
}

func assignInput(p *model.PromoCode, in *PromoInput, scope *uint64) {
	p.Code = in.Code
	p.DiscountType = in.DiscountType
	p.DiscountValue = in.DiscountValue
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.UsageLimit = in.UsageLimit
	if scope != nil {
		id := *scope
		p.HotelID = &id
	} else {
		p.HotelID = in.HotelID
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
}
