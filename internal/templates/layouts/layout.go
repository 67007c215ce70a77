// layout.go defines the page shells. Component functions here build Templ
// components in plain Go (templ.ComponentFunc) so the view layer stays a
// single compiled artifact with no generation step in the build.
package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// esc escapes a string for safe interpolation into HTML text or attributes.
func esc(s string) string {
	return templ.EscapeString(s)
}

// Storefront wraps page content in the public storefront shell: header with
// nav, cart badge, and account links, flash banners, and footer.
func Storefront(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, title); err != nil {
			return err
		}
		if err := writeStorefrontHeader(ctx, w); err != nil {
			return err
		}
		if err := writeFlash(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main class="container">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main><footer class="site-footer"><p>Tradewind &middot; demo storefront</p></footer></body></html>`)
		return err
	})
}

// Admin wraps page content in the administration shell: restricted-area
// banner, admin nav, flash banners. Used by every /admin page including the
// admin login, so the security banner is always visible.
func Admin(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, title+" · Admin"); err != nil {
			return err
		}
		if _, err := io.WriteString(w,
			`<div class="admin-banner" role="alert">Restricted area — administrator access only. All actions are logged.</div>`); err != nil {
			return err
		}
		if err := writeAdminHeader(ctx, w); err != nil {
			return err
		}
		if err := writeFlash(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main class="container admin">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func writeHead(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w,
		`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s · Tradewind</title><link rel="stylesheet" href="/static/css/main.css"><script src="/static/vendor/htmx.min.js" defer></script></head><body>`,
		esc(title))
	return err
}

func writeStorefrontHeader(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w,
		`<header class="site-header"><a class="brand" href="/">Tradewind</a><nav>`+
			navLink(ctx, "/products", "Products")); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w,
		`<a href="/cart" class="cart-link">Cart <span class="cart-badge">%d</span></a>`,
		GetCartCount(ctx)); err != nil {
		return err
	}

	if IsAuthenticated(ctx) {
		if _, err := fmt.Fprintf(w, `<a href="/account">%s</a>`, esc(GetUserName(ctx))); err != nil {
			return err
		}
		if GetIsAdmin(ctx) {
			if _, err := io.WriteString(w, `<a href="/admin">Admin</a>`); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w,
			`<form method="post" action="/logout" class="inline">%s<button type="submit" class="link">Sign out</button></form>`,
			csrfField(ctx)); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, `<a href="/login">Sign in</a><a href="/register">Register</a>`); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, `</nav></header>`)
	return err
}

func writeAdminHeader(ctx context.Context, w io.Writer) error {
	if !IsAuthenticated(ctx) {
		// Admin login page renders before any session exists.
		_, err := io.WriteString(w, `<header class="site-header admin"><a class="brand" href="/admin/login">Tradewind Admin</a></header>`)
		return err
	}

	if _, err := io.WriteString(w,
		`<header class="site-header admin"><a class="brand" href="/admin">Tradewind Admin</a><nav>`+
			navLink(ctx, "/admin", "Dashboard")+
			navLink(ctx, "/admin/products", "Products")+
			navLink(ctx, "/admin/events", "Security feed")+
			`<a href="/">Storefront</a>`); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w,
		`<form method="post" action="/logout" class="inline">%s<button type="submit" class="link">Sign out</button></form>`,
		csrfField(ctx)); err != nil {
		return err
	}
	_, err := io.WriteString(w, `</nav></header>`)
	return err
}

// writeFlash renders one-shot success/error banners when set.
func writeFlash(ctx context.Context, w io.Writer) error {
	if msg := GetFlashSuccess(ctx); msg != "" {
		if _, err := fmt.Fprintf(w, `<div class="flash flash-success">%s</div>`, esc(msg)); err != nil {
			return err
		}
	}
	if msg := GetFlashError(ctx); msg != "" {
		if _, err := fmt.Fprintf(w, `<div class="flash flash-error">%s</div>`, esc(msg)); err != nil {
			return err
		}
	}
	return nil
}

// navLink renders a nav anchor, marking the active path.
func navLink(ctx context.Context, href, label string) string {
	class := ""
	if GetActivePath(ctx) == href {
		class = ` class="active"`
	}
	return fmt.Sprintf(`<a href="%s"%s>%s</a>`, esc(href), class, esc(label))
}

// csrfField renders the hidden CSRF input every state-changing form carries.
func csrfField(ctx context.Context) string {
	return fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, esc(GetCSRFToken(ctx)))
}

// CSRFField is the exported form-field helper for page templates.
func CSRFField(ctx context.Context) string {
	return csrfField(ctx)
}
