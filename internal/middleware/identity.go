package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

// Actor returns the authenticated caller stored by JWTAuth.  ok is false
// on routes that are not behind JWTAuth.
func Actor(c echo.Context) (booking.Actor, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return booking.Actor{}, false
	}
	role, ok := c.Get(ctxRole).(model.Role)
	if !ok {
		return booking.Actor{}, false
	}
	return booking.Actor{UserID: id, Role: role}, true
}

// userID identifies the caller in rate-limit keys; "guest" when anonymous.
func userID(c echo.Context) string {
	if a, ok := Actor(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "guest"
}
