package middleware

// identity.go keeps the keys under which JWTAuth stores the caller and the
// typed accessors handlers and other middleware read them with.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
	ctxHotelID  = "hotel_id"
	ctxClaims   = "claims"
)

func setIdentity(c echo.Context, cl *utils.AccessClaims) {
	c.Set(ctxUserID, cl.UserID)
	c.Set(ctxUsername, cl.Username)
	c.Set(ctxRole, cl.Role)
	c.Set(ctxHotelID, cl.HotelID)
	c.Set(ctxClaims, cl)

	req := c.Request()
	c.SetRequest(req.WithContext(logger.WithUserID(req.Context(), cl.UserID)))
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role.
func Role(c echo.Context) (model.Role, bool) {
	r, ok := c.Get(ctxRole).(model.Role)
	return r, ok
}

// HotelID returns the employee's hotel, or nil.
func HotelID(c echo.Context) *uint64 {
	h, _ := c.Get(ctxHotelID).(*uint64)
	return h
}

// Claims returns the verified access token claims.
func Claims(c echo.Context) (*utils.AccessClaims, bool) {
	cl, ok := c.Get(ctxClaims).(*utils.AccessClaims)
	return cl, ok
}

// currentUserID is the rate limiter's view of the caller: the user id, or
// "anon" before authentication.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
