package pages

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/tradewindhq/tradewind/internal/templates/layouts"
)

// DashboardView carries the admin dashboard counters.
type DashboardView struct {
	ProductCount   int
	ActiveSessions int
	SignIns24h     int
	FailedEvents   int
}

// ProductFormView carries the admin product form state for create and edit.
type ProductFormView struct {
	ID          int64
	Slug        string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
	Stock       int
	Featured    bool
	Active      bool
}

// EventView is one row of the admin security feed.
type EventView struct {
	Type      string
	Email     string
	UserAgent string
	Path      string
	ErrorCode string
	CreatedAt time.Time
}

// EventFeedView is the paginated, filterable security feed.
type EventFeedView struct {
	Events     []EventView
	FilterType string
	Types      []string
	Page       int
	TotalPages int
}

// AdminDashboardPage renders the admin landing page counters.
func AdminDashboardPage(stats DashboardView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<h1>Dashboard</h1><div class="stat-grid"><div class="stat"><span class="stat-value">%d</span><span class="stat-label">Products</span></div><div class="stat"><span class="stat-value">%d</span><span class="stat-label">Active sessions</span></div><div class="stat"><span class="stat-value">%d</span><span class="stat-label">Sign-ins (24h)</span></div><div class="stat"><span class="stat-value">%d</span><span class="stat-label">Failed auth (24h)</span></div></div>`,
			stats.ProductCount, stats.ActiveSessions, stats.SignIns24h, stats.FailedEvents)
		return err
	})
	return layouts.Admin("Dashboard", content)
}

// AdminProductsPage renders the product management table.
func AdminProductsPage(products []ProductView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w,
			`<h1>Products</h1><p><a class="button" href="/admin/products/new">New product</a></p><table class="admin-table"><thead><tr><th>Name</th><th>Slug</th><th>Price</th><th>Stock</th><th>Status</th><th></th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, p := range products {
			status := "active"
			if p.Stock <= 0 {
				status = "out of stock"
			}
			if _, err := fmt.Fprintf(w,
				`<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td><a href="/admin/products/%d/edit">Edit</a> <form method="post" action="/admin/products/%d/delete" class="inline">%s<button type="submit" class="link danger">Delete</button></form></td></tr>`,
				esc(p.Name), esc(p.Slug), esc(money(p.PriceCents, p.Currency)), p.Stock,
				status, p.ID, p.ID, layouts.CSRFField(ctx)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
	return layouts.Admin("Products", content)
}

// AdminProductFormPage renders the create/edit product form. A zero ID means
// create; otherwise the form posts to the update route.
func AdminProductFormPage(form ProductFormView, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "New product"
		action := "/admin/products"
		if form.ID != 0 {
			title = "Edit product"
			action = fmt.Sprintf("/admin/products/%d", form.ID)
		}
		if _, err := fmt.Fprintf(w, `<h1>%s</h1>`, title); err != nil {
			return err
		}
		if err := formError(w, errMsg); err != nil {
			return err
		}
		featured := ""
		if form.Featured {
			featured = " checked"
		}
		active := ""
		if form.Active {
			active = " checked"
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="%s" class="admin-form">%s<label>Name<input type="text" name="name" value="%s" required></label><label>Slug<input type="text" name="slug" value="%s" placeholder="auto-generated when blank"></label><label>Description (HTML allowed, sanitized)<textarea name="description" rows="8">%s</textarea></label><label>Price (cents)<input type="number" name="price_cents" value="%d" min="0" required></label><label>Currency<input type="text" name="currency" value="%s" maxlength="3"></label><label>Image URL<input type="url" name="image_url" value="%s"></label><label>Stock<input type="number" name="stock" value="%d" min="0"></label><label class="check"><input type="checkbox" name="featured"%s> Featured</label><label class="check"><input type="checkbox" name="active"%s> Active</label><button type="submit">Save</button></form>`,
			action, layouts.CSRFField(ctx), esc(form.Name), esc(form.Slug),
			esc(form.Description), form.PriceCents, esc(form.Currency),
			esc(form.ImageURL), form.Stock, featured, active)
		return err
	})
	return layouts.Admin("Products", content)
}

// AdminEventsPage renders the auth security feed with the type filter and
// pagination controls.
func AdminEventsPage(feed EventFeedView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Security feed</h1><form method="get" action="/admin/events" class="filter"><select name="type"><option value="">All events</option>`); err != nil {
			return err
		}
		for _, t := range feed.Types {
			selected := ""
			if t == feed.FilterType {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, esc(t), selected, esc(t)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select><button type="submit">Filter</button></form><table class="admin-table"><thead><tr><th>When</th><th>Event</th><th>Email</th><th>Outcome</th><th>Path</th><th>User agent</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, ev := range feed.Events {
			outcome := "ok"
			class := "ok"
			if ev.ErrorCode != "" {
				outcome = ev.ErrorCode
				class = "failed"
			}
			if _, err := fmt.Fprintf(w,
				`<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				class, esc(ev.CreatedAt.Format("2006-01-02 15:04:05")), esc(ev.Type),
				esc(ev.Email), esc(outcome), esc(ev.Path), esc(ev.UserAgent)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tbody></table>`); err != nil {
			return err
		}

		if feed.TotalPages > 1 {
			if _, err := io.WriteString(w, `<nav class="pagination">`); err != nil {
				return err
			}
			for p := 1; p <= feed.TotalPages; p++ {
				current := ""
				if p == feed.Page {
					current = ` class="current"`
				}
				if _, err := fmt.Fprintf(w, `<a href="/admin/events?type=%s&page=%d"%s>%d</a>`, esc(feed.FilterType), p, current, p); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</nav>`); err != nil {
				return err
			}
		}
		return nil
	})
	return layouts.Admin("Security feed", content)
}
