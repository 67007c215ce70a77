package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradewindhq/tradewind/internal/templates/layouts"
)

// RegisterFormView carries the re-render state of the registration form so
// a failed submit keeps what the user typed (never the password).
type RegisterFormView struct {
	Email     string
	FirstName string
	LastName  string
}

// AccountView carries the profile data shown on the account page.
type AccountView struct {
	Email     string
	FirstName string
	LastName  string
	Provider  string
}

// LoginPage renders the storefront sign-in form. errMsg re-renders the form
// with a translated failure; successMsg shows post-reset banners.
func LoginPage(email, errMsg, successMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="auth-card"><h1>Sign in</h1>`); err != nil {
			return err
		}
		if successMsg != "" {
			if _, err := fmt.Fprintf(w, `<p class="form-success">%s</p>`, esc(successMsg)); err != nil {
				return err
			}
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/login">%s<label>Email<input type="email" name="email" value="%s" required autofocus></label><label>Password<input type="password" name="password" required></label><button type="submit">Sign in</button></form><p class="auth-links"><a href="/forgot-password">Forgot password?</a> &middot; <a href="/register">Create an account</a></p></section>`,
			layouts.CSRFField(ctx), esc(email))
		return err
	})
	return layouts.Storefront("Sign in", content)
}

// RegisterPage renders the account registration form.
func RegisterPage(form RegisterFormView, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="auth-card"><h1>Create your account</h1>`); err != nil {
			return err
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/register">%s<label>Email<input type="email" name="email" value="%s" required></label><label>First name<input type="text" name="first_name" value="%s"></label><label>Last name<input type="text" name="last_name" value="%s"></label><label>Password<input type="password" name="password" required minlength="6"></label><button type="submit">Register</button></form><p class="auth-links">Already have an account? <a href="/login">Sign in</a></p></section>`,
			layouts.CSRFField(ctx), esc(form.Email), esc(form.FirstName), esc(form.LastName))
		return err
	})
	return layouts.Storefront("Register", content)
}

// RegisterConfirmPage renders after a sign-up that requires email
// confirmation before the first sign-in.
func RegisterConfirmPage(email string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<section class="auth-card"><h1>Confirm your email</h1><p>We sent a confirmation link to <strong>%s</strong>. Click it to activate your account, then sign in.</p><p class="auth-links"><a href="/login">Back to sign in</a></p></section>`,
			esc(email))
		return err
	})
	return layouts.Storefront("Confirm your email", content)
}

// ForgotPasswordPage renders the password reset request form.
func ForgotPasswordPage(email, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="auth-card"><h1>Reset your password</h1>`); err != nil {
			return err
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/forgot-password">%s<label>Email<input type="email" name="email" value="%s" required></label><button type="submit">Send reset link</button></form><p class="auth-links"><a href="/login">Back to sign in</a></p></section>`,
			layouts.CSRFField(ctx), esc(email))
		return err
	})
	return layouts.Storefront("Reset password", content)
}

// ForgotPasswordSentPage renders the neutral confirmation. The same page
// renders whether or not the account exists.
func ForgotPasswordSentPage(email string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<section class="auth-card"><h1>Check your inbox</h1><p>If an account exists for <strong>%s</strong>, a password reset link is on its way.</p><p class="auth-links"><a href="/login">Back to sign in</a></p></section>`,
			esc(email))
		return err
	})
	return layouts.Storefront("Check your inbox", content)
}

// AccountPage renders the profile view/update form.
func AccountPage(account AccountView, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<section class="account"><h1>Your account</h1><dl><dt>Email</dt><dd>%s</dd><dt>Signed up via</dt><dd>%s</dd></dl>`,
			esc(account.Email), esc(account.Provider)); err != nil {
			return err
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/account">%s<label>First name<input type="text" name="first_name" value="%s"></label><label>Last name<input type="text" name="last_name" value="%s"></label><button type="submit">Save profile</button></form></section>`,
			layouts.CSRFField(ctx), esc(account.FirstName), esc(account.LastName))
		return err
	})
	return layouts.Storefront("Your account", content)
}

// AdminLoginPage renders the administration sign-in form inside the admin
// shell, so the restricted-area banner is visible before authentication.
func AdminLoginPage(email, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w,
			`<section class="auth-card admin"><h1>Administrator sign in</h1><p class="notice">This area is for store staff. Customer accounts cannot sign in here.</p>`); err != nil {
			return err
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/admin/login">%s<label>Email<input type="email" name="email" value="%s" required autofocus></label><label>Password<input type="password" name="password" required></label><button type="submit">Sign in</button></form></section>`,
			layouts.CSRFField(ctx), esc(email))
		return err
	})
	return layouts.Admin("Sign in", content)
}
