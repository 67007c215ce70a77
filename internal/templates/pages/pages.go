// Package pages holds the Templ components for every rendered page. Pages
// receive plain view structs from handlers — no feature package types cross
// into the view layer. Shared request data (CSRF token, flash, cart badge,
// session) arrives through the context, populated by the layout injector.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/tradewindhq/tradewind/internal/templates/layouts"
)

// esc escapes a string for HTML interpolation.
func esc(s string) string {
	return templ.EscapeString(s)
}

// money formats an integer cent amount with its currency code.
func money(cents int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %d.%02d", currency, cents/100, cents%100)
}

// formError renders the inline error block login/register forms re-render
// with. Empty messages render nothing.
func formError(w io.Writer, msg string) error {
	if msg == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, `<p class="form-error" role="alert">%s</p>`, esc(msg))
	return err
}

// ErrorPage renders the full-page error view used by the app error handler.
func ErrorPage(code int, message string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<section class="error-page"><h1>%d %s</h1><p>%s</p><p><a href="/">Back to the storefront</a></p></section>`,
			code, esc(http.StatusText(code)), esc(message))
		return err
	})
	return layouts.Storefront(http.StatusText(code), content)
}
