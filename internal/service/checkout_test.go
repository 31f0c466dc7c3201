package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type checkoutFixture struct {
	svc       *CheckoutService
	stripe    *mockStripeSessions
	store     *mockPromoStore
	hotels    *mockHotels
	publisher *mockPublisher
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		stripe:    new(mockStripeSessions),
		store:     new(mockPromoStore),
		hotels:    new(mockHotels),
		publisher: new(mockPublisher),
	}
	promos := newPromoService(f.store, f.hotels, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	f.svc = &CheckoutService{
		Sessions:  f.stripe,
		Rooms:     f.hotels,
		Promos:    promos,
		Publisher: f.publisher,
		Cfg:       CheckoutConfig{Currency: "EUR", SuccessURL: "https://example.test/ok", CancelURL: "https://example.test/cancel"},
		Now:       func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) },
	}
	f.hotels.On("Room", mock.Anything, uint64(50)).Return(&model.Room{ID: 50, HotelID: 5, PricePerNight: 100}, nil)
	return f
}

func TestCheckout_WithPromo(t *testing.T) {
	f := newCheckoutFixture()
	promo := basePromo()
	promo.ID = 9
	f.store.On("GetByCode", mock.Anything, "SUMMER10").Return(&promo, nil)

	var params *stripe.CheckoutSessionParams
	f.stripe.On("New", mock.Anything).
		Run(func(args mock.Arguments) { params = args.Get(0).(*stripe.CheckoutSessionParams) }).
		Return(&stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil)

	res, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID: 4, BookingID: "bk-1", RoomID: 50, Nights: 2, PromoCode: "SUMMER10",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.InDelta(t, 200.0, res.Subtotal, 1e-9)
	assert.InDelta(t, 20.0, res.DiscountAmount, 1e-9)
	assert.InDelta(t, 180.0, res.Total, 1e-9)

	require.NotNil(t, params)
	require.Len(t, params.LineItems, 1)
	assert.EqualValues(t, 18000, *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "eur", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "9", params.Metadata["promo_code_id"])
	assert.Equal(t, "bk-1", params.Metadata["booking_id"])
	assert.Equal(t, "4", params.Metadata["user_id"])
	f.store.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
}

func TestCheckout_SessionExpiryBoundsQuotedDiscount(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, 30 * time.Minute},
		{10 * time.Minute, 30 * time.Minute},
		{2 * time.Hour, 2 * time.Hour},
		{72 * time.Hour, 24 * time.Hour},
	}
	for _, tc := range cases {
		f := newCheckoutFixture()
		f.svc.Cfg.SessionTTL = tc.ttl
		promo := basePromo()
		promo.ID = 9
		f.store.On("GetByCode", mock.Anything, "SUMMER10").Return(&promo, nil)
		var params *stripe.CheckoutSessionParams
		f.stripe.On("New", mock.Anything).
			Run(func(args mock.Arguments) { params = args.Get(0).(*stripe.CheckoutSessionParams) }).
			Return(&stripe.CheckoutSession{ID: "cs_ttl"}, nil)

		_, err := f.svc.Checkout(context.Background(), CheckoutRequest{BookingID: "bk", RoomID: 50, Nights: 1, PromoCode: "SUMMER10"})
		require.NoError(t, err)
		require.NotNil(t, params.ExpiresAt, "ttl %s", tc.ttl)
		assert.Equal(t, now.Add(tc.want).Unix(), *params.ExpiresAt, "ttl %s", tc.ttl)
		f.store.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
	}
}

func TestCheckout_WithoutPromo(t *testing.T) {
	f := newCheckoutFixture()
	f.stripe.On("New", mock.Anything).Return(&stripe.CheckoutSession{ID: "cs_2"}, nil)

	res, err := f.svc.Checkout(context.Background(), CheckoutRequest{BookingID: "bk-2", RoomID: 50, Nights: 3})
	require.NoError(t, err)
	assert.InDelta(t, 300.0, res.Total, 1e-9)
	assert.Zero(t, res.DiscountAmount)
}

func TestCheckout_Rejections(t *testing.T) {
	f := newCheckoutFixture()
	f.hotels.On("Room", mock.Anything, uint64(99)).Return(nil, repository.ErrNotFound)
	full := basePromo()
	full.DiscountType, full.DiscountValue = model.DiscountFixed, 1000
	f.store.On("GetByCode", mock.Anything, "FREE").Return(&full, nil)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutRequest{RoomID: 50, Nights: 1})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Checkout(ctx, CheckoutRequest{BookingID: "b", RoomID: 50, Nights: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Checkout(ctx, CheckoutRequest{BookingID: "b", RoomID: 99, Nights: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Checkout(ctx, CheckoutRequest{BookingID: "b", RoomID: 50, Nights: 1, PromoCode: "FREE"})
	assert.ErrorIs(t, err, ErrValidation)

	f.stripe.AssertNotCalled(t, "New", mock.Anything)
}

func TestCheckout_StripeFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.stripe.On("New", mock.Anything).Return(nil, errors.New("card network down"))

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{BookingID: "b", RoomID: 50, Nights: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func paidSession() *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            "cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   18000,
		Currency:      stripe.CurrencyEUR,
		Metadata: map[string]string{
			"promo_code_id": "9", "promo_code": "SUMMER10", "booking_id": "bk-1", "user_id": "4",
		},
	}
}

func TestCompleteCheckout_RedeemsAndPublishes(t *testing.T) {
	f := newCheckoutFixture()
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(nil)
	f.publisher.On("PublishPromoRedeemed", mock.Anything, queue.PromoRedeemedEvent{
		PromoCodeID:      9,
		Code:             "SUMMER10",
		UserID:           4,
		BookingID:        "bk-1",
		SessionID:        "cs_test_1",
		AmountTotalCents: 18000,
		Currency:         "eur",
		RedeemedAt:       "2025-06-01T09:00:00Z",
	}).Return(nil)

	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
	f.store.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestCompleteCheckout_DedupesRedelivery(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.Dedupe = &memDeduper{}
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(nil)
	f.publisher.On("PublishPromoRedeemed", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
	f.store.AssertNumberOfCalls(t, "Redeem", 1)
}

func TestCompleteCheckout_RetryableFailureForgetsEvent(t *testing.T) {
	f := newCheckoutFixture()
	dd := &memDeduper{}
	f.svc.Dedupe = dd
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(ErrPersistence).Once()
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(nil).Once()
	f.publisher.On("PublishPromoRedeemed", mock.Anything, mock.Anything).Return(nil)

	assert.ErrorIs(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()), ErrPersistence)
	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
	f.store.AssertNumberOfCalls(t, "Redeem", 2)
}

func TestCompleteCheckout_SkipsWithoutPromoOrPayment(t *testing.T) {
	f := newCheckoutFixture()

	noPromo := paidSession()
	delete(noPromo.Metadata, "promo_code_id")
	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_a", noPromo))

	unpaid := paidSession()
	unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_b", unpaid))

	f.store.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishPromoRedeemed", mock.Anything, mock.Anything)
}

func TestCompleteCheckout_ExhaustedCodeIsNotRetried(t *testing.T) {
	f := newCheckoutFixture()
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(repository.ErrUsageLimitReached)

	require.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
	f.publisher.AssertNotCalled(t, "PublishPromoRedeemed", mock.Anything, mock.Anything)
}

func TestCompleteCheckout_PublishFailureIsNotFatal(t *testing.T) {
	f := newCheckoutFixture()
	f.store.On("Redeem", mock.Anything, uint64(9)).Return(nil)
	f.publisher.On("PublishPromoRedeemed", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	assert.NoError(t, f.svc.CompleteCheckout(context.Background(), "evt_1", paidSession()))
}
