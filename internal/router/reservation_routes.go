package router

// Reservations are created by anyone (rate limited) and reviewed or
// cancelled by admins only.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/handler"
)

func RegisterReservations(api *echo.Group, r *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := api.Group("/reservations")
	g.POST("", r.Create, limited(limiter)...)

	admin := adminOnly(jwtSecret)
	g.GET("", r.List, admin...)
	g.GET("/:id", r.Get, admin...)
	g.DELETE("/:id", r.Delete, admin...)
}

// RegisterContact registers the public contact form.
func RegisterContact(api *echo.Group, c *handler.ContactHandler, limiter echo.MiddlewareFunc) {
	api.POST("/contact", c.Send, limited(limiter)...)
}
