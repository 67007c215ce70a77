// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires together the identity, catalog, cart, and
// auth event services.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/auth"
	"github.com/tradewindhq/tradewind/internal/authlog"
	"github.com/tradewindhq/tradewind/internal/cart"
	"github.com/tradewindhq/tradewind/internal/catalog"
	"github.com/tradewindhq/tradewind/internal/config"
	"github.com/tradewindhq/tradewind/internal/identity"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup and used to register all routes and jobs.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all services.
	DB *sql.DB

	// Redis is the Redis client shared for sessions, carts, rate limiting.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Identity is the hosted auth provider client, exposed for health checks.
	Identity *identity.Client

	// Auth manages browser sessions against the identity provider.
	Auth auth.Service

	// Catalog manages products.
	Catalog catalog.Service

	// Cart manages shopping carts in Redis.
	Cart cart.Service

	// Events is the auth event log repository, used by the admin feed
	// and the retention sweep.
	Events authlog.Repository
}

// New creates a new App instance with the given dependencies, wires all
// services, and configures the Echo server with global middleware and
// error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Critical for rate limiting and
	// the auth event log. Tradewind runs behind a TLS-terminating proxy
	// on a Docker network.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	provider, err := identity.NewClient(identity.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
		Retry: identity.RetryConfig{
			MaxAttempts: cfg.Provider.RetryAttempts,
			BaseDelay:   cfg.Provider.RetryBaseDelay,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating identity client: %w", err)
	}

	// Sessions live in Redis so they survive restarts; the in-memory store
	// is the opt-out for constrained deployments.
	var sessions identity.SessionStore
	if cfg.Auth.PersistSession {
		sessions, err = identity.NewRedisSessionStore(rdb, cfg.Auth.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("creating session store: %w", err)
		}
	} else {
		sessions = identity.NewMemorySessionStore()
	}

	events := authlog.NewRepository(db)

	// Every auth event goes to the structured log and to MariaDB for the
	// admin event feed.
	recorder := authlog.MultiRecorder{
		&authlog.SlogRecorder{},
		authlog.NewStoreRecorder(events),
	}

	authSvc := auth.NewService(provider, sessions, recorder, auth.Config{
		SessionTTL:         cfg.Auth.SessionTTL,
		AutoRefreshToken:   cfg.Auth.AutoRefreshToken,
		RefreshLeeway:      cfg.Auth.RefreshLeeway,
		DetectSessionInURL: cfg.Auth.DetectSessionInURL,
	})

	catalogSvc := catalog.NewService(catalog.NewRepository(db))
	cartSvc := cart.NewService(cart.NewRedisStore(rdb), catalogSvc, cfg.Cart.TTL)

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Echo:     e,
		Identity: provider,
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Events:   events,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve static files (CSS, JS, vendor libs, fonts, images).
	e.Static("/static", "static")

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- allow cross-origin requests for the JSON health/API surface.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))

	// CSRF -- double-submit cookie pattern on all state-changing requests.
	a.Echo.Use(middleware.CSRF())

	// Session loading -- resolves the browser session cookie on every
	// request so templates and handlers can see who is signed in. Does
	// not reject; route groups add RequireAuth where needed.
	a.Echo.Use(auth.LoadSession(a.Auth))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses, and renders error pages for
// browser requests or JSON for API requests.
//
// For HTMX partial requests that hit errors, we set HX-Retarget and
// HX-Reswap headers so the error page replaces the full body instead of
// being swapped into a partial target.
//
// For 401 errors on browser requests, we redirect to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"

	// Check if it's our domain error type.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = defaultErrorMessage(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
		}
	}

	// API requests always get JSON.
	if isAPIRequest(c) {
		c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	// For HTMX requests, redirect to login on 401 so the browser navigates
	// instead of swapping error HTML into a fragment target.
	if isHTMXRequest(c) {
		if code == http.StatusUnauthorized {
			c.Response().Header().Set("HX-Redirect", loginPathFor(c))
			c.NoContent(http.StatusNoContent)
			return
		}
		// For other HTMX errors, retarget to body so the full error page
		// replaces the entire page instead of landing in a partial target.
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	// Regular browser 401 — redirect to login page.
	if code == http.StatusUnauthorized {
		c.Redirect(http.StatusSeeOther, loginPathFor(c))
		return
	}

	middleware.Render(c, code, pages.ErrorPage(code, message))
}

// loginPathFor picks the login page matching the area the request hit, so
// an expired admin session lands back on the admin login rather than the
// storefront one.
func loginPathFor(c echo.Context) string {
	path := c.Request().URL.Path
	if len(path) >= 6 && path[:6] == "/admin" {
		return "/admin/login"
	}
	return "/login"
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to log in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusConflict:
		return "This action conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusInternalServerError:
		return "Something went wrong on our end. Please try again."
	case http.StatusBadGateway:
		return "The server received an invalid response."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	return len(c.Request().URL.Path) >= 4 && c.Request().URL.Path[:4] == "/api"
}

// isHTMXRequest returns true if the request was initiated by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Tradewind server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
