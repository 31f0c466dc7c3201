package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/service"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

func newAuthServer(s *mockSessions, codec *utils.TokenCodec) *echo.Echo {
	h := NewAuthHandler(s, 7*24*time.Hour, true)
	e := echo.New()
	e.POST("/users/register", h.Register)
	e.POST("/users/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/refresh/logout", h.Logout)
	e.POST("/refresh/logout-all", h.LogoutAll, middleware.JWTAuth(codec))
	e.GET("/users/me", h.Me, middleware.JWTAuth(codec))
	return e
}

func session(u model.User, access, refresh string) *service.Session {
	return &service.Session{
		Access:  utils.AccessToken{Token: access, Exp: time.Now().Add(15 * time.Minute)},
		Refresh: repository.Issued{Token: refresh, ExpiresAt: time.Now().Add(7 * 24 * time.Hour)},
		User:    u,
	}
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	s := new(mockSessions)
	hotel := uint64(3)
	u := model.User{ID: 4, Username: "maria", Role: model.RoleEmployee, HotelID: &hotel}
	s.On("Login", mock.Anything, "maria", "pw").Return(session(u, "acc-1", "ref-1"), nil)

	rec := do(newAuthServer(s, testCodec()), http.MethodPost, "/users/login", `{"username":"maria","password":"pw"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "acc-1", body["accessToken"])
	assert.Equal(t, "employee", body["role"])
	assert.EqualValues(t, 3, body["hotelId"])
	assert.NotContains(t, body, "refreshToken")

	ck := findCookie(rec, RefreshCookie)
	require.NotNil(t, ck)
	assert.Equal(t, "ref-1", ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, 7*24*3600, ck.MaxAge)
}

func TestLoginFailures(t *testing.T) {
	s := new(mockSessions)
	s.On("Login", mock.Anything, "", "").Return(nil, &service.ValidationError{Reason: "username and password are required"})
	s.On("Login", mock.Anything, "ghost", "pw").Return(nil, service.ErrInvalidCredentials)
	s.On("Login", mock.Anything, "maria", "pw").Return(nil, repository.ErrPersistence)
	e := newAuthServer(s, testCodec())

	rec := do(e, http.MethodPost, "/users/login", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/users/login", `{"username":"ghost","password":"pw"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid username or password","code":"INVALID_CREDENTIALS"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/users/login", `{"username":"maria","password":"pw"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, findCookie(rec, RefreshCookie))
}

func TestRegister(t *testing.T) {
	s := new(mockSessions)
	s.On("Register", mock.Anything, "new", "pw").Return(&model.User{ID: 9, Username: "new", Role: model.RoleUser}, nil)
	s.On("Register", mock.Anything, "taken", "pw").Return(nil, repository.ErrConflict)
	e := newAuthServer(s, testCodec())

	rec := do(e, http.MethodPost, "/users/register", `{"username":"new","password":"pw"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":9,"username":"new","role":"user"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/users/register", `{"username":"taken","password":"pw"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshRotatesCookie(t *testing.T) {
	s := new(mockSessions)
	u := model.User{ID: 4, Username: "maria", Role: model.RoleUser}
	s.On("Refresh", mock.Anything, "old").Return(session(u, "acc-2", "new"), nil)

	rec := do(newAuthServer(s, testCodec()), http.MethodPost, "/refresh", "", nil,
		&http.Cookie{Name: RefreshCookie, Value: "old"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accessToken":"acc-2","refreshToken":"new","user":{"id":4,"username":"maria","role":"user"}}`, rec.Body.String())
	assert.Equal(t, "new", findCookie(rec, RefreshCookie).Value)
}

func TestRefreshWithoutCookie(t *testing.T) {
	s := new(mockSessions)
	rec := do(newAuthServer(s, testCodec()), http.MethodPost, "/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	s.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestRefreshFailureClearsCookie(t *testing.T) {
	s := new(mockSessions)
	s.On("Refresh", mock.Anything, "stale").Return(nil, service.ErrInvalidOrExpiredToken)
	s.On("Refresh", mock.Anything, "broken").Return(nil, errors.Join(repository.ErrPersistence, errors.New("db down")))
	e := newAuthServer(s, testCodec())

	rec := do(e, http.MethodPost, "/refresh", "", nil, &http.Cookie{Name: RefreshCookie, Value: "stale"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	ck := findCookie(rec, RefreshCookie)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Less(t, ck.MaxAge, 0)

	rec = do(e, http.MethodPost, "/refresh", "", nil, &http.Cookie{Name: RefreshCookie, Value: "broken"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
	require.NotNil(t, findCookie(rec, RefreshCookie))
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	s := new(mockSessions)
	s.On("Logout", mock.Anything, "tok").Return()
	e := newAuthServer(s, testCodec())

	rec := do(e, http.MethodPost, "/refresh/logout", "", nil, &http.Cookie{Name: RefreshCookie, Value: "tok"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, findCookie(rec, RefreshCookie).Value)

	rec = do(e, http.MethodPost, "/refresh/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	s.AssertNumberOfCalls(t, "Logout", 1)
}

func TestLogoutAllRequiresBearer(t *testing.T) {
	codec := testCodec()
	s := new(mockSessions)
	s.On("LogoutAll", mock.Anything, uint64(4)).Return()
	e := newAuthServer(s, codec)

	rec := do(e, http.MethodPost, "/refresh/logout-all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	auth := bearer(t, codec, model.User{ID: 4, Username: "maria", Role: model.RoleUser})
	rec = do(e, http.MethodPost, "/refresh/logout-all", "", map[string]string{"Authorization": auth})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, findCookie(rec, RefreshCookie))
	s.AssertExpectations(t)
}

func TestMeEchoesClaims(t *testing.T) {
	codec := testCodec()
	e := newAuthServer(new(mockSessions), codec)
	auth := bearer(t, codec, model.User{ID: 4, Username: "maria", Role: model.RoleAdmin})

	rec := do(e, http.MethodGet, "/users/me", "", map[string]string{"Authorization": auth})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 4, body["id"])
	assert.Equal(t, "admin", body["role"])
	assert.Nil(t, body["hotelId"])
	assert.NotZero(t, body["exp"])
}
