package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/handler"
	"github.com/iliyamo/balloon-tour-booking/internal/media"
	"github.com/iliyamo/balloon-tour-booking/internal/middleware"
	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

// Handlers bundles everything the API routes dispatch to.  Limiter guards
// the public write endpoints and Cache fronts the public flight reads; both
// may be nil.
type Handlers struct {
	Auth         *handler.AuthHandler
	Flights      *handler.FlightHandler
	Reservations *handler.ReservationHandler
	Contact      *handler.ContactHandler

	Cache   *middleware.ResponseCache
	Limiter echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication and
// live outside /api.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts every /api endpoint.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string) {
	api := e.Group("/api")
	RegisterAuth(api, h.Auth, jwtSecret, h.Limiter)
	RegisterFlights(api, h.Flights, h.Cache, jwtSecret)
	RegisterReservations(api, h.Reservations, jwtSecret, h.Limiter)
	RegisterContact(api, h.Contact, h.Limiter)
}

// RegisterAuth registers the session endpoints under /auth.  Admin creation
// runs behind OptionalJWT: the handler itself decides whether a token is
// needed, since the first account may be created anonymously.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/login", a.Login, limited(limiter)...)
	g.POST("/logout", a.Logout)
	g.POST("/admin", a.CreateAdmin, middleware.OptionalJWT(jwtSecret))
}

// adminOnly is the middleware chain for privileged endpoints.
func adminOnly(jwtSecret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}
}

func limited(limiter echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if limiter == nil {
		return nil
	}
	return []echo.MiddlewareFunc{limiter}
}

// RegisterUploads serves the disk media store under its URL prefix.
func RegisterUploads(e *echo.Echo, root string) {
	e.Static(media.URLPrefix, root)
}
