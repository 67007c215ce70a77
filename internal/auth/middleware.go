package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/identity"
	"github.com/tradewindhq/tradewind/internal/middleware"
)

// SessionCookieName is the HTTP cookie carrying the browser session token.
// Only the opaque token crosses into the browser; provider tokens stay
// server-side in the session store.
const SessionCookieName = "tradewind_session"

// Context keys for storing session data in Echo context. Other packages
// access the authenticated user via the exported getters below.
const (
	contextKeySession = "auth_session"
	contextKeyToken   = "auth_token"
)

// RequireAuth returns middleware that restores the session behind the
// cookie and injects it into the request context. Requests without a valid
// session are redirected to loginPath (or get 401 JSON for API routes).
func RequireAuth(service Service, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c)
			if token == "" {
				return handleUnauthenticated(c, loginPath)
			}

			sess, err := service.Current(c.Request().Context(), token)
			if err != nil {
				// Invalid or expired session -- clear the stale cookie.
				ClearSessionCookie(c)
				return handleUnauthenticated(c, loginPath)
			}

			c.Set(contextKeySession, sess)
			c.Set(contextKeyToken, token)
			return next(c)
		}
	}
}

// LoadSession returns middleware that restores the session when present but
// never rejects the request. Public storefront pages use it so the header
// can show the signed-in state.
func LoadSession(service Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := SessionToken(c); token != "" {
				if sess, err := service.Current(c.Request().Context(), token); err == nil {
					c.Set(contextKeySession, sess)
					c.Set(contextKeyToken, token)
				}
			}
			return next(c)
		}
	}
}

// RequireAdmin returns middleware that refuses sessions without the admin
// role. Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := CurrentSession(c)
			if sess == nil || !sess.User.Role.IsAdmin() {
				return apperror.NewForbidden("administrator access required")
			}
			return next(c)
		}
	}
}

// handleUnauthenticated returns the appropriate response for requests
// without a valid session: redirect for browsers, 401 JSON for API clients.
func handleUnauthenticated(c echo.Context, loginPath string) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}

	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", loginPath)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

// isAPIRequest reports whether the request targets the JSON API.
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return len(path) >= 4 && path[:4] == "/api"
}

// CurrentSession returns the session injected by RequireAuth/LoadSession,
// or nil when the request is anonymous.
func CurrentSession(c echo.Context) *identity.Session {
	sess, _ := c.Get(contextKeySession).(*identity.Session)
	return sess
}

// CurrentToken returns the browser session token behind the request, or "".
func CurrentToken(c echo.Context) string {
	token, _ := c.Get(contextKeyToken).(string)
	return token
}

// --- Cookie helpers ---

// SessionToken reads the browser session token from the cookie.
func SessionToken(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// SetSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure behind TLS, and SameSite=Lax.
func SetSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60, // 30 days in seconds
	})
}

// ClearSessionCookie removes the session cookie by setting MaxAge to -1.
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
