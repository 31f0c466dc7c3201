package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// RefreshCookie is the name of the httpOnly cookie carrying the refresh
// token.
const RefreshCookie = "refreshToken"

// Sessions is the session lifecycle used by AuthHandler.
// *service.SessionService satisfies it.
type Sessions interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.Session, error)
	Refresh(ctx context.Context, raw string) (*service.Session, error)
	Logout(ctx context.Context, raw string)
	LogoutAll(ctx context.Context, userID uint64)
	Cleanup(ctx context.Context) (int64, error)
}

// AuthHandler serves registration, login and the refresh cookie endpoints.
type AuthHandler struct {
	Sessions     Sessions
	RefreshTTL   time.Duration
	SecureCookie bool // set in production
}

func NewAuthHandler(s Sessions, refreshTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{Sessions: s, RefreshTTL: refreshTTL, SecureCookie: secureCookie}
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string     `json:"accessToken"`
	ID          uint64     `json:"id"`
	Username    string     `json:"username"`
	Role        model.Role `json:"role"`
	HotelID     *uint64    `json:"hotelId"`
}

type userSummary struct {
	ID       uint64     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

type refreshResp struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         userSummary `json:"user"`
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(h.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// Register creates a guest account.  It does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Sessions.Register(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, userSummary{ID: u.ID, Username: u.Username, Role: u.Role})
}

// Login returns an access token in the body and the refresh token as a
// cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	h.setRefreshCookie(c, sess.Refresh.Token)
	return c.JSON(http.StatusOK, loginResp{
		AccessToken: sess.Access.Token,
		ID:          sess.User.ID,
		Username:    sess.User.Username,
		Role:        sess.User.Role,
		HotelID:     sess.User.HotelID,
	})
}

// Refresh exchanges the refresh cookie for a new token pair.  The cookie is
// cleared on every failure, since the old token is unusable afterwards.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil || ck.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token missing", "code": "UNAUTHORIZED"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Sessions.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearRefreshCookie(c)
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token", "code": "INVALID_TOKEN"})
		}
		return respondError(c, err)
	}
	h.setRefreshCookie(c, sess.Refresh.Token)
	return c.JSON(http.StatusOK, refreshResp{
		AccessToken:  sess.Access.Token,
		RefreshToken: sess.Refresh.Token,
		User:         userSummary{ID: sess.User.ID, Username: sess.User.Username, Role: sess.User.Role},
	})
}

// Logout revokes the cookie's token if there is one.  It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		ctx, cancel := reqCtx(c)
		defer cancel()
		h.Sessions.Logout(ctx, ck.Value)
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Sessions.LogoutAll(ctx, uid)
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out from all sessions"})
}

// Cleanup purges dead refresh tokens on demand (admin only).
func (h *AuthHandler) Cleanup(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Sessions.Cleanup(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// Me echoes the verified access token claims.
func (h *AuthHandler) Me(c echo.Context) error {
	cl, ok := middleware.Claims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	resp := echo.Map{
		"id":       cl.UserID,
		"username": cl.Username,
		"role":     cl.Role,
		"hotelId":  cl.HotelID,
	}
	if cl.ExpiresAt != nil {
		resp["exp"] = cl.ExpiresAt.Unix()
	}
	return c.JSON(http.StatusOK, resp)
}
