package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/middleware"
)

// RegisterRoutes adds the storefront auth routes. Credential-handling
// endpoints are rate limited per IP: every POST here turns into a provider
// round trip, and the login form is the obvious brute-force target.
func RegisterRoutes(e *echo.Echo, h *Handler, service Service) {
	limit := middleware.RateLimit(10, time.Minute)

	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, limit)

	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register, limit)

	e.GET("/forgot-password", h.ForgotPasswordForm)
	e.POST("/forgot-password", h.ForgotPassword, limit)

	e.POST("/logout", h.Logout)

	e.GET("/auth/callback", h.Callback, limit)

	account := e.Group("/account", RequireAuth(service, "/login"))
	account.GET("", h.AccountForm)
	account.POST("", h.AccountUpdate)
}
