package cart

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/pages"
)

// CookieName is the HTTP cookie carrying the anonymous cart ID.
const CookieName = "tradewind_cart"

// Handler handles the cart pages and mutations.
type Handler struct {
	service Service
}

// NewHandler creates a new cart handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Show renders the cart page (GET /cart).
func (h *Handler) Show(c echo.Context) error {
	cart, err := h.service.Get(c.Request().Context(), CartID(c))
	if err != nil {
		return apperror.NewInternal(err)
	}
	return middleware.Render(c, http.StatusOK, pages.CartPage(cartView(cart)))
}

// Add handles add-to-cart submits (POST /cart/items). The cart cookie is
// minted here on first use.
func (h *Handler) Add(c echo.Context) error {
	productID, err := strconv.ParseInt(c.FormValue("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		return apperror.NewBadRequest("invalid product")
	}
	quantity, _ := strconv.Atoi(c.FormValue("quantity"))

	id := CartID(c)
	if id == "" {
		id = uuid.NewString()
		setCartCookie(c, id)
	}

	if _, err := h.service.Add(c.Request().Context(), id, productID, quantity); err != nil {
		return err
	}
	return redirectToCart(c)
}

// Update handles quantity changes (POST /cart/items/:id).
func (h *Handler) Update(c echo.Context) error {
	productID, err := lineProductID(c)
	if err != nil {
		return err
	}
	quantity, err := strconv.Atoi(c.FormValue("quantity"))
	if err != nil {
		return apperror.NewBadRequest("invalid quantity")
	}

	if _, err := h.service.UpdateQuantity(c.Request().Context(), CartID(c), productID, quantity); err != nil {
		return err
	}
	return redirectToCart(c)
}

// Remove drops one line (POST /cart/items/:id/remove).
func (h *Handler) Remove(c echo.Context) error {
	productID, err := lineProductID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Remove(c.Request().Context(), CartID(c), productID); err != nil {
		return err
	}
	return redirectToCart(c)
}

// Clear empties the cart (POST /cart/clear).
func (h *Handler) Clear(c echo.Context) error {
	if id := CartID(c); id != "" {
		if err := h.service.Clear(c.Request().Context(), id); err != nil {
			return apperror.NewInternal(err)
		}
	}
	return redirectToCart(c)
}

// CartID reads the cart ID from the cookie, or "" when no cart exists yet.
func CartID(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setCartCookie sets the long-lived anonymous cart cookie.
func setCartCookie(c echo.Context, id string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   180 * 24 * 60 * 60, // 180 days in seconds
	})
}

// lineProductID parses the :id route param.
func lineProductID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid product id")
	}
	return id, nil
}

// redirectToCart sends the browser back to the cart page, HTMX-aware.
func redirectToCart(c echo.Context) error {
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/cart")
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/cart")
}

// cartView maps the cart onto the page view.
func cartView(cart *Cart) pages.CartView {
	view := pages.CartView{
		TotalCents: cart.TotalCents(),
		Currency:   cart.Currency(),
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, pages.CartItemView{
			ProductID:  item.ProductID,
			Slug:       item.Slug,
			Name:       item.Name,
			PriceCents: item.PriceCents,
			Currency:   item.Currency,
			Quantity:   item.Quantity,
			LineCents:  item.LineCents(),
		})
	}
	return view
}
