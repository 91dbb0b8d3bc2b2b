package router // router wires handlers and middleware onto the echo instance

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-booking/internal/handler"
)

// Guards are the cross-cutting middlewares shared by the route groups.
type Guards struct {
	// JWTSecret verifies access tokens on protected groups.
	JWTSecret string
	// RateLimit runs on every /v1 group, after authentication where
	// there is one so keys can include the user.
	RateLimit echo.MiddlewareFunc
	// Cache wraps the public catalogue reads.
	Cache echo.MiddlewareFunc
}

func (g Guards) limit() echo.MiddlewareFunc {
	if g.RateLimit == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return g.RateLimit
}

func (g Guards) cache() echo.MiddlewareFunc {
	if g.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return g.Cache
}

// RegisterRoutes registers routes that need no authentication and no
// limiting.  Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers login and registration under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	auth := e.Group("/v1/auth", g.limit())
	auth.POST("/login", a.Login)
	auth.POST("/register", a.Register)
}

// RegisterPublic registers the unauthenticated catalogue.  Reads are
// served through the response cache.
func RegisterPublic(e *echo.Echo, r *handler.ResourceHandler, g Guards) {
	mw := []echo.MiddlewareFunc{g.limit(), g.cache()}
	e.GET("/v1/spaces", r.ListSpaces, mw...)
	e.GET("/v1/spaces/:id", r.GetSpace, mw...)
	e.GET("/v1/equipment", r.ListEquipment, mw...)
	e.GET("/v1/equipment/:id", r.GetEquipment, mw...)
	e.GET("/v1/workshops", r.ListWorkshops, mw...)
	e.GET("/v1/workshops/:id", r.GetWorkshop, mw...)
}
