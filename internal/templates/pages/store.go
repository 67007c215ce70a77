package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradewindhq/tradewind/internal/templates/layouts"
)

// ProductView is the storefront's view of one product. DescriptionHTML is
// sanitized before it reaches this struct and is rendered raw.
type ProductView struct {
	ID              int64
	Slug            string
	Name            string
	DescriptionHTML string
	PriceCents      int64
	Currency        string
	ImageURL        string
	Stock           int
	Featured        bool
}

// CartItemView is one cart line as rendered on the cart page.
type CartItemView struct {
	ProductID  int64
	Slug       string
	Name       string
	PriceCents int64
	Currency   string
	Quantity   int
	LineCents  int64
}

// CartView is the rendered cart: lines plus the computed total.
type CartView struct {
	Items      []CartItemView
	TotalCents int64
	Currency   string
}

// HomePage renders the landing page with the featured product strip.
func HomePage(featured []ProductView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w,
			`<section class="hero"><h1>Tradewind</h1><p>Goods worth the voyage.</p><a class="button" href="/products">Browse the catalog</a></section>`); err != nil {
			return err
		}
		if len(featured) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<section class="featured"><h2>Featured</h2>`); err != nil {
			return err
		}
		if err := writeProductGrid(w, featured); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
	return layouts.Storefront("Home", content)
}

// ProductListPage renders the full catalog grid.
func ProductListPage(products []ProductView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section><h1>Products</h1>`); err != nil {
			return err
		}
		if len(products) == 0 {
			if _, err := io.WriteString(w, `<p class="empty">Nothing in the catalog yet. Check back soon.</p></section>`); err != nil {
				return err
			}
			return nil
		}
		if err := writeProductGrid(w, products); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	})
	return layouts.Storefront("Products", content)
}

// ProductDetailPage renders one product with its add-to-cart form.
func ProductDetailPage(p ProductView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<article class="product-detail"><h1>%s</h1>`, esc(p.Name)); err != nil {
			return err
		}
		if p.ImageURL != "" {
			if _, err := fmt.Fprintf(w, `<img src="%s" alt="%s">`, esc(p.ImageURL), esc(p.Name)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<p class="price">%s</p>`, esc(money(p.PriceCents, p.Currency))); err != nil {
			return err
		}
		// DescriptionHTML passed through the sanitizer at write time.
		if err := templ.Raw(p.DescriptionHTML).Render(ctx, w); err != nil {
			return err
		}

		if p.Stock <= 0 {
			if _, err := io.WriteString(w, `<p class="out-of-stock">Out of stock</p></article>`); err != nil {
				return err
			}
			return nil
		}
		_, err := fmt.Fprintf(w,
			`<form method="post" action="/cart/items">%s<input type="hidden" name="product_id" value="%d"><label>Quantity<input type="number" name="quantity" value="1" min="1" max="99"></label><button type="submit">Add to cart</button></form></article>`,
			layouts.CSRFField(ctx), p.ID)
		return err
	})
	return layouts.Storefront(p.Name, content)
}

// CartPage renders the cart contents with quantity and remove controls.
func CartPage(cart CartView) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="cart"><h1>Your cart</h1>`); err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			_, err := io.WriteString(w, `<p class="empty">Your cart is empty. <a href="/products">Find something</a>.</p></section>`)
			return err
		}

		if _, err := io.WriteString(w, `<table class="cart-table"><thead><tr><th>Product</th><th>Price</th><th>Qty</th><th>Line total</th><th></th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, item := range cart.Items {
			if _, err := fmt.Fprintf(w,
				`<tr><td><a href="/products/%s">%s</a></td><td>%s</td><td><form method="post" action="/cart/items/%d" class="inline">%s<input type="number" name="quantity" value="%d" min="1" max="99"><button type="submit">Update</button></form></td><td>%s</td><td><form method="post" action="/cart/items/%d/remove" class="inline">%s<button type="submit" class="link">Remove</button></form></td></tr>`,
				esc(item.Slug), esc(item.Name), esc(money(item.PriceCents, item.Currency)),
				item.ProductID, layouts.CSRFField(ctx), item.Quantity,
				esc(money(item.LineCents, item.Currency)),
				item.ProductID, layouts.CSRFField(ctx)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w,
			`</tbody></table><p class="cart-total">Total: <strong>%s</strong></p><form method="post" action="/cart/clear">%s<button type="submit" class="link">Empty cart</button></form></section>`,
			esc(money(cart.TotalCents, cart.Currency)), layouts.CSRFField(ctx))
		return err
	})
	return layouts.Storefront("Your cart", content)
}

// writeProductGrid renders the shared product card grid.
func writeProductGrid(w io.Writer, products []ProductView) error {
	if _, err := io.WriteString(w, `<div class="product-grid">`); err != nil {
		return err
	}
	for _, p := range products {
		img := ""
		if p.ImageURL != "" {
			img = fmt.Sprintf(`<img src="%s" alt="%s">`, esc(p.ImageURL), esc(p.Name))
		}
		stock := ""
		if p.Stock <= 0 {
			stock = `<span class="out-of-stock">Out of stock</span>`
		}
		if _, err := fmt.Fprintf(w,
			`<a class="product-card" href="/products/%s">%s<h3>%s</h3><p class="price">%s</p>%s</a>`,
			esc(p.Slug), img, esc(p.Name), esc(money(p.PriceCents, p.Currency)), stock); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</div>`)
	return err
}
