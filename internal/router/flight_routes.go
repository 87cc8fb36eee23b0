package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/handler"
	"github.com/iliyamo/balloon-tour-booking/internal/middleware"
)

// RegisterFlights registers the flight catalogue.  Reads are public and
// served through the response cache; writes require an admin token.
func RegisterFlights(api *echo.Group, f *handler.FlightHandler, cache *middleware.ResponseCache, jwtSecret string) {
	g := api.Group("/flights")

	var read []echo.MiddlewareFunc
	if cache != nil {
		read = append(read, cache.Middleware(handler.FlightsNamespace))
	}
	g.GET("", f.List, read...)
	g.GET("/:id", f.Get, read...)

	admin := adminOnly(jwtSecret)
	g.POST("", f.Create, admin...)
	g.PUT("/:id", f.Update, admin...)
	g.DELETE("/:id", f.Delete, admin...)
}
