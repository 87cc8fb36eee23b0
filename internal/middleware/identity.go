package middleware

// identity.go holds helpers that read what JWTAuth stored in the Echo
// context.  Rate limiting keys on the user id; handlers use Authenticated
// and HasRole where authorization depends on more than the route.

import (
	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or "" for guests.
func UserID(c echo.Context) string {
	s, _ := c.Get(CtxUserID).(string)
	return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// Authenticated reports whether a valid token accompanied the request.
func Authenticated(c echo.Context) bool { return UserID(c) != "" }

// HasRole reports whether the caller holds one of roles.
func HasRole(c echo.Context, roles ...string) bool {
	r := Role(c)
	if r == "" {
		return false
	}
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// userKey is the rate-limit identity: the user id or "anon".
func userKey(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
