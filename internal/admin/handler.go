// Package admin is the administration area: its own login surface, the
// dashboard, and the auth-event security feed. Product management lives in
// the catalog package and registers onto the same admin route group.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/auth"
	"github.com/tradewindhq/tradewind/internal/authlog"
	"github.com/tradewindhq/tradewind/internal/catalog"
	"github.com/tradewindhq/tradewind/internal/identity"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/pages"
)

// eventsPageSize is the security feed page size.
const eventsPageSize = 25

// Handler handles the admin login, dashboard, and security feed.
type Handler struct {
	auth    auth.Service
	catalog catalog.Service
	events  authlog.Repository
}

// NewHandler creates a new admin handler.
func NewHandler(authSvc auth.Service, catalogSvc catalog.Service, events authlog.Repository) *Handler {
	return &Handler{auth: authSvc, catalog: catalogSvc, events: events}
}

// LoginForm renders the admin sign-in page (GET /admin/login). Signed-in
// admins go straight to the dashboard; signed-in customers are told where
// the door is.
func (h *Handler) LoginForm(c echo.Context) error {
	if sess := auth.CurrentSession(c); sess != nil {
		if sess.User.Role.IsAdmin() {
			return c.Redirect(http.StatusSeeOther, "/admin")
		}
		return middleware.Render(c, http.StatusOK,
			pages.AdminLoginPage("", "your account does not have administrator access"))
	}
	return middleware.Render(c, http.StatusOK, pages.AdminLoginPage("", ""))
}

// Login processes the admin sign-in form (POST /admin/login). The auth
// contract is identical to the storefront login; the only addition is the
// role gate — non-admin accounts are refused at the door and their fresh
// session is destroyed immediately.
func (h *Handler) Login(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	src := authlog.Source{UserAgent: c.Request().UserAgent(), Path: c.Request().URL.Path}
	token, sess, err := h.auth.SignIn(c.Request().Context(), src, req.Email, req.Password)
	if err != nil {
		msg := identity.Translate(err).Message
		return middleware.Render(c, http.StatusOK, pages.AdminLoginPage(req.Email, msg))
	}

	if !sess.User.Role.IsAdmin() {
		_ = h.auth.SignOut(c.Request().Context(), src, token)
		return middleware.Render(c, http.StatusOK,
			pages.AdminLoginPage(req.Email, "your account does not have administrator access"))
	}

	auth.SetSessionCookie(c, token)
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/admin")
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

// Dashboard renders the admin landing page counters (GET /admin).
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	productCount, err := h.catalog.Count(ctx)
	if err != nil {
		return apperror.NewInternal(err)
	}

	// Session and event counters are best-effort chrome: a cold event
	// table must not take the dashboard down.
	sessions, _ := h.auth.ActiveSessions(ctx)
	since := time.Now().Add(-24 * time.Hour)
	counts, _ := h.events.CountSince(ctx, since)
	failed, _ := h.events.CountFailedSince(ctx, since)

	return middleware.Render(c, http.StatusOK, pages.AdminDashboardPage(pages.DashboardView{
		ProductCount:   productCount,
		ActiveSessions: sessions,
		SignIns24h:     counts[authlog.EventSignIn],
		FailedEvents:   failed,
	}))
}

// Events renders the security feed (GET /admin/events?type=&page=).
func (h *Handler) Events(c echo.Context) error {
	filterType := authlog.EventType(c.QueryParam("type"))
	if filterType != "" && !authlog.ValidEventType(filterType) {
		return apperror.NewBadRequest("unknown event type")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	events, total, err := h.events.List(c.Request().Context(), authlog.Filter{
		Type:   filterType,
		Limit:  eventsPageSize,
		Offset: (page - 1) * eventsPageSize,
	})
	if err != nil {
		return apperror.NewInternal(err)
	}

	totalPages := (total + eventsPageSize - 1) / eventsPageSize
	if totalPages < 1 {
		totalPages = 1
	}

	feed := pages.EventFeedView{
		FilterType: string(filterType),
		Types: []string{
			string(authlog.EventSignIn), string(authlog.EventSignUp),
			string(authlog.EventSignOut), string(authlog.EventPasswordReset),
			string(authlog.EventProfileUpdate), string(authlog.EventSessionRefresh),
		},
		Page:       page,
		TotalPages: totalPages,
	}
	for _, ev := range events {
		feed.Events = append(feed.Events, pages.EventView{
			Type:      string(ev.Type),
			Email:     ev.Email,
			UserAgent: ev.UserAgent,
			Path:      ev.Path,
			ErrorCode: ev.ErrorCode,
			CreatedAt: ev.CreatedAt,
		})
	}

	return middleware.Render(c, http.StatusOK, pages.AdminEventsPage(feed))
}
