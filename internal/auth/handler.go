package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/authlog"
	"github.com/tradewindhq/tradewind/internal/identity"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/pages"
)

// Handler handles the storefront auth surfaces: login, registration,
// logout, password reset, the provider redirect callback, and the account
// page. Handlers are thin: bind, call the service, render. Only translated
// AuthError messages reach a page — raw provider internals never do.
type Handler struct {
	service Service
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// LoginForm renders the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	// An already-signed-in browser has nothing to do here.
	if CurrentSession(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	// Show a success banner after an email-confirmation callback landed.
	var successMsg string
	if c.QueryParam("confirmed") == "1" {
		successMsg = "Your email is confirmed. You can now sign in."
	}

	return middleware.Render(c, http.StatusOK, pages.LoginPage("", "", successMsg))
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	token, _, err := h.service.SignIn(c.Request().Context(), requestSource(c), req.Email, req.Password)
	if err != nil {
		// Re-render the form with the translated message only.
		msg := identity.Translate(err).Message
		return middleware.Render(c, http.StatusOK, pages.LoginPage(req.Email, msg, ""))
	}

	SetSessionCookie(c, token)
	return redirectAfterAuth(c, safeNextPath(c.QueryParam("next")))
}

// RegisterForm renders the registration page (GET /register).
func (h *Handler) RegisterForm(c echo.Context) error {
	if CurrentSession(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, pages.RegisterPage(pages.RegisterFormView{}, ""))
}

// Register processes the registration form submission (POST /register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	form := pages.RegisterFormView{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	if msg := validateRegisterRequest(&req); msg != "" {
		return middleware.Render(c, http.StatusOK, pages.RegisterPage(form, msg))
	}

	outcome, err := h.service.SignUp(c.Request().Context(), requestSource(c), SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		msg := identity.Translate(err).Message
		return middleware.Render(c, http.StatusOK, pages.RegisterPage(form, msg))
	}

	// Email confirmation pending: no session yet.
	if outcome.ConfirmationSent {
		return middleware.Render(c, http.StatusOK, pages.RegisterConfirmPage(req.Email))
	}

	SetSessionCookie(c, outcome.Token)
	return redirectAfterAuth(c, "/")
}

// Logout destroys the session and clears the cookie (POST /logout).
// Idempotent: a second submit with a dead cookie still lands on the
// storefront with no error.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.SignOut(c.Request().Context(), requestSource(c), SessionToken(c)); err != nil {
		return apperror.NewInternal(err)
	}
	ClearSessionCookie(c)
	return redirectAfterAuth(c, "/")
}

// ForgotPasswordForm renders the reset request page (GET /forgot-password).
func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, pages.ForgotPasswordPage("", ""))
}

// ForgotPassword processes the reset request (POST /forgot-password).
// The same confirmation renders whether or not the account exists.
func (h *Handler) ForgotPassword(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	if email == "" {
		return middleware.Render(c, http.StatusOK, pages.ForgotPasswordPage("", "email is required"))
	}

	_ = h.service.ResetPassword(c.Request().Context(), requestSource(c), email)

	return middleware.Render(c, http.StatusOK, pages.ForgotPasswordSentPage(email))
}

// Callback adopts provider tokens delivered on the redirect URL
// (GET /auth/callback). Email confirmation and OAuth flows land here.
func (h *Handler) Callback(c echo.Context) error {
	accessToken := c.QueryParam("access_token")
	refreshToken := c.QueryParam("refresh_token")
	if accessToken == "" {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	token, _, err := h.service.AdoptTokens(c.Request().Context(), requestSource(c), accessToken, refreshToken)
	if err != nil {
		if err == ErrCallbackDisabled {
			return apperror.NewForbidden("sign-in via callback links is disabled")
		}
		msg := identity.Translate(err).Message
		return middleware.Render(c, http.StatusOK, pages.LoginPage("", msg, ""))
	}

	SetSessionCookie(c, token)
	return c.Redirect(http.StatusSeeOther, "/login?confirmed=1")
}

// AccountForm renders the profile page (GET /account, behind RequireAuth).
func (h *Handler) AccountForm(c echo.Context) error {
	sess := CurrentSession(c)
	return middleware.Render(c, http.StatusOK, pages.AccountPage(accountView(sess.User), ""))
}

// AccountUpdate processes the profile form (POST /account).
func (h *Handler) AccountUpdate(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sess := CurrentSession(c)
	user, err := h.service.UpdateProfile(c.Request().Context(), requestSource(c), CurrentToken(c), identity.ProfileParams{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		msg := identity.Translate(err).Message
		return middleware.Render(c, http.StatusOK, pages.AccountPage(accountView(sess.User), msg))
	}

	return middleware.Render(c, http.StatusOK, pages.AccountPage(accountView(*user), ""))
}

// accountView maps a user onto the account page view.
func accountView(user identity.User) pages.AccountView {
	provider := user.Provider
	if provider == "" {
		provider = "email"
	}
	return pages.AccountView{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Provider:  provider,
	}
}

// requestSource captures the event source context from the request.
func requestSource(c echo.Context) authlog.Source {
	return authlog.Source{
		UserAgent: c.Request().UserAgent(),
		Path:      c.Request().URL.Path,
	}
}

// redirectAfterAuth sends the browser to target, HTMX-aware.
func redirectAfterAuth(c echo.Context, target string) error {
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// safeNextPath keeps post-login redirects on-site. Anything that is not a
// local absolute path falls back to the storefront root.
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// validateRegisterRequest performs basic server-side validation on the
// registration form. Returns an error message or empty string. The provider
// enforces its own password policy on top of this.
func validateRegisterRequest(req *RegisterRequest) string {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return "email is required"
	}
	if !strings.Contains(req.Email, "@") {
		return "email looks invalid"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < 6 {
		return "password must be at least 6 characters"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	if len(req.FirstName) > 100 || len(req.LastName) > 100 {
		return "names must be at most 100 characters"
	}
	return ""
}
