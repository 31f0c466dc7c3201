package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Register(ctx context.Context, username, password string) (*model.User, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockSessions) Login(ctx context.Context, username, password string) (*service.Session, error) {
	args := m.Called(ctx, username, password)
	s, _ := args.Get(0).(*service.Session)
	return s, args.Error(1)
}

func (m *mockSessions) Refresh(ctx context.Context, raw string) (*service.Session, error) {
	args := m.Called(ctx, raw)
	s, _ := args.Get(0).(*service.Session)
	return s, args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, raw string) { m.Called(ctx, raw) }

func (m *mockSessions) LogoutAll(ctx context.Context, userID uint64) { m.Called(ctx, userID) }

func (m *mockSessions) Cleanup(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockPromos struct{ mock.Mock }

func (m *mockPromos) Create(ctx context.Context, a service.Actor, p service.PromoPayload) (*model.PromoCode, error) {
	args := m.Called(ctx, a, p)
	pc, _ := args.Get(0).(*model.PromoCode)
	return pc, args.Error(1)
}

func (m *mockPromos) Update(ctx context.Context, a service.Actor, id uint64, p service.PromoPayload) (*model.PromoCode, error) {
	args := m.Called(ctx, a, id, p)
	pc, _ := args.Get(0).(*model.PromoCode)
	return pc, args.Error(1)
}

func (m *mockPromos) Delete(ctx context.Context, a service.Actor, id uint64) error {
	return m.Called(ctx, a, id).Error(0)
}

func (m *mockPromos) Get(ctx context.Context, a service.Actor, id uint64) (*model.PromoCode, error) {
	args := m.Called(ctx, a, id)
	pc, _ := args.Get(0).(*model.PromoCode)
	return pc, args.Error(1)
}

func (m *mockPromos) List(ctx context.Context, a service.Actor) ([]*model.PromoCode, error) {
	args := m.Called(ctx, a)
	l, _ := args.Get(0).([]*model.PromoCode)
	return l, args.Error(1)
}

func (m *mockPromos) ListPublic(ctx context.Context, hotelID *uint64) ([]*model.PromoCode, error) {
	args := m.Called(ctx, hotelID)
	l, _ := args.Get(0).([]*model.PromoCode)
	return l, args.Error(1)
}

func (m *mockPromos) Apply(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*service.ApplyResult)
	return r, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*service.CheckoutResult)
	return r, args.Error(1)
}

func (m *mockPayments) CompleteCheckout(ctx context.Context, eventID string, sess *stripe.CheckoutSession) error {
	return m.Called(ctx, eventID, sess).Error(0)
}

const testSecret = "handler-test-secret"

func testCodec() *utils.TokenCodec {
	return utils.NewTokenCodec(testSecret, 15*time.Minute)
}

func bearer(t *testing.T, codec *utils.TokenCodec, u model.User) string {
	t.Helper()
	tok, err := codec.Issue(u)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, body string, hdr map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func u64(v uint64) *uint64 { return &v }
