package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/school-event-seating/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/school-event-seating/internal/middleware" // import middleware for admin authentication and role enforcement
	"github.com/iliyamo/school-event-seating/internal/utils"
)

// RegisterRoutes registers operational routes that do not require
// authentication: a health check that pings db (nil skips the ping) and
// the Prometheus scrape endpoint for gatherer.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health(db))
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterPublic registers the parent-facing endpoints.  limit guards the
// sign up form and cache fronts the public seat chart; either may be nil.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")

	// Sign ups are rate limited per client.
	if limit != nil {
		g.POST("/registrations", p.Register, limit)
	} else {
		g.POST("/registrations", p.Register)
	}

	g.GET("/tickets", p.SearchTicket)    // ?name=&class=
	g.GET("/tickets/:id", p.TicketByID) // ticket by registration id
	g.GET("/classes", p.Classes)

	if cache != nil {
		g.GET("/seats", p.Seats, cache)
	} else {
		g.GET("/seats", p.Seats)
	}
}

// RegisterAdmin registers the administrator endpoints.  Login is open;
// everything else requires a valid admin token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, loginLimit echo.MiddlewareFunc) {
	if loginLimit != nil {
		e.POST("/v1/admin/login", a.Login, loginLimit)
	} else {
		e.POST("/v1/admin/login", a.Login)
	}

	g := e.Group(
		"/v1/admin",
		middleware.AdminAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)

	// ---- Seats ----
	g.GET("/seats", a.Chart)
	g.POST("/seats/:id/toggle-block", a.ToggleBlock)

	// ---- Registrations ----
	g.GET("/registrations", a.Participants)
	g.POST("/registrations", a.Add)
	g.PUT("/registrations/:id", a.Update)
	g.DELETE("/registrations/:id", a.Delete)
}
