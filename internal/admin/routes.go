package admin

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/auth"
	"github.com/tradewindhq/tradewind/internal/catalog"
	"github.com/tradewindhq/tradewind/internal/middleware"
)

// RegisterRoutes wires the admin area: the public admin login surface plus
// the authenticated, role-gated /admin group. Unauthenticated requests into
// the group land on /admin/login, not the storefront login.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.Service, catalogHandler *catalog.Handler) {
	e.GET("/admin/login", h.LoginForm, auth.LoadSession(authSvc))
	e.POST("/admin/login", h.Login, middleware.RateLimit(10, time.Minute))

	adminGroup := e.Group("/admin",
		auth.RequireAuth(authSvc, "/admin/login"),
		auth.RequireAdmin(),
	)
	adminGroup.GET("", h.Dashboard)
	adminGroup.GET("/events", h.Events)

	catalog.RegisterAdminRoutes(adminGroup, catalogHandler)
}
