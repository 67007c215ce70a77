package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/admin"
	"github.com/tradewindhq/tradewind/internal/auth"
	"github.com/tradewindhq/tradewind/internal/cart"
	"github.com/tradewindhq/tradewind/internal/catalog"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/layouts"
)

// RegisterRoutes sets up all application routes. It constructs the HTTP
// handlers around the wired services and delegates to each feature's route
// registration function.
//
// This is the single place where all routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Templates pull layout data (signed-in user, cart count, CSRF token)
	// out of the render context; this injector is what puts it there.
	middleware.LayoutInjector = a.injectLayoutData

	// Health check endpoint for Docker/load-balancer monitoring. Reports
	// unhealthy when the database, Redis, or the identity provider is
	// unreachable.
	e.GET("/healthz", a.healthz)

	catalogHandler := catalog.NewHandler(a.Catalog)
	cartHandler := cart.NewHandler(a.Cart)
	authHandler := auth.NewHandler(a.Auth)
	adminHandler := admin.NewHandler(a.Auth, a.Catalog, a.Events)

	// Storefront: home, product listing, product detail.
	catalog.RegisterRoutes(e, catalogHandler)

	// Shopping cart.
	cart.RegisterRoutes(e, cartHandler)

	// Login, registration, password reset, account page.
	auth.RegisterRoutes(e, authHandler, a.Auth)

	// Admin area: its own login, dashboard, product management, event feed.
	admin.RegisterRoutes(e, adminHandler, a.Auth, catalogHandler)
}

// injectLayoutData copies per-request state from the Echo context into the
// render context so layout chrome (header, nav, flash area) can read it.
func (a *App) injectLayoutData(c echo.Context, ctx context.Context) context.Context {
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)

	if id := cart.CartID(c); id != "" {
		ctx = layouts.SetCartCount(ctx, a.Cart.Count(c.Request().Context(), id))
	}

	if session := auth.CurrentSession(c); session != nil {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserID(ctx, session.User.ID)
		ctx = layouts.SetUserName(ctx, session.User.DisplayName())
		ctx = layouts.SetUserEmail(ctx, session.User.Email)
		ctx = layouts.SetIsAdmin(ctx, session.User.Role.IsAdmin())
	}

	return ctx
}

// healthz checks each backing dependency with a short deadline and reports
// per-dependency status. Any failure turns the overall response into a 503
// so orchestrators stop routing traffic here.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"identity": "ok",
	}

	if err := a.DB.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := a.Identity.Health(ctx); err != nil {
		checks["identity"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}
