package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/utils"
)

// CookieName is the session cookie set at login.
const CookieName = "jwt"

// Context keys written by JWTAuth and OptionalJWT.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

const (
	msgNotAuthenticated = "You are not authenticated!"
	msgTokenInvalid     = "Token is not valid!"
)

// rawToken returns the session token carried by the request.  Browsers send
// it in the jwt cookie; other clients may use an Authorization: Bearer
// header instead.
func rawToken(c echo.Context) string {
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func setIdentity(c echo.Context, id utils.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxRole, id.Role)
}

// JWTAuth returns an Echo middleware that validates the session token and
// injects the caller's id, email and role into the request context.  A
// missing token yields 401 "You are not authenticated!"; a malformed,
// expired or badly signed one yields 401 "Token is not valid!".
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := rawToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": msgNotAuthenticated})
			}
			id, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": msgTokenInvalid})
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth but never rejects.  Handlers whose
// authorization depends on state (such as bootstrapping the first admin)
// inspect the context themselves.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := rawToken(c); raw != "" {
				if id, err := utils.ParseSessionToken(secret, raw); err == nil {
					setIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}
