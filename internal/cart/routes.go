package cart

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds the cart routes. All are public — carts exist before
// sign-in — and mutations are protected by the global CSRF middleware.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/cart", h.Show)
	e.POST("/cart/items", h.Add)
	e.POST("/cart/items/:id", h.Update)
	e.POST("/cart/items/:id/remove", h.Remove)
	e.POST("/cart/clear", h.Clear)
}
