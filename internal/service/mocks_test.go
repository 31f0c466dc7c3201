package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type mockPromoStore struct{ mock.Mock }

func (m *mockPromoStore) Create(ctx context.Context, p *model.PromoCode) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 1
	}
	return args.Error(0)
}

func (m *mockPromoStore) GetByID(ctx context.Context, id uint64) (*model.PromoCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromoCode), args.Error(1)
}

func (m *mockPromoStore) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PromoCode), args.Error(1)
}

func (m *mockPromoStore) List(ctx context.Context, f repository.PromoFilter) ([]*model.PromoCode, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*model.PromoCode), args.Error(1)
}

func (m *mockPromoStore) ListActive(ctx context.Context, hotelID *uint64, today model.Date) ([]*model.PromoCode, error) {
	args := m.Called(ctx, hotelID, today)
	return args.Get(0).([]*model.PromoCode), args.Error(1)
}

func (m *mockPromoStore) Update(ctx context.Context, p *model.PromoCode) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPromoStore) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPromoStore) Redeem(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockHotels struct{ mock.Mock }

func (m *mockHotels) Exists(ctx context.Context, hotelID uint64) (bool, error) {
	args := m.Called(ctx, hotelID)
	return args.Bool(0), args.Error(1)
}

func (m *mockHotels) Room(ctx context.Context, roomID uint64) (*model.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, username, password string, role model.Role, hotelID *uint64, cost int) (uint64, error) {
	args := m.Called(ctx, username, password, role, hotelID, cost)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Issue(ctx context.Context, userID uint64) (repository.Issued, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(repository.Issued), args.Error(1)
}

func (m *mockTokens) Rotate(ctx context.Context, raw string) (*repository.Rotation, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Rotation), args.Error(1)
}

func (m *mockTokens) Revoke(ctx context.Context, raw string) error {
	return m.Called(ctx, raw).Error(0)
}

func (m *mockTokens) RevokeAll(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockTokens) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockStripeSessions struct{ mock.Mock }

func (m *mockStripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishPromoRedeemed(ctx context.Context, ev queue.PromoRedeemedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// memDeduper is an in-process Deduper for tests.
type memDeduper struct{ seen map[string]bool }

func (d *memDeduper) Seen(_ context.Context, id string) (bool, error) {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *memDeduper) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}
