package catalog

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds the public storefront catalog routes.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.Home)
	e.GET("/products", h.List)
	e.GET("/products/:slug", h.Detail)
}

// RegisterAdminRoutes adds product management routes to the admin group.
// The group carries the auth + admin-role middleware.
func RegisterAdminRoutes(adminGroup *echo.Group, h *Handler) {
	adminGroup.GET("/products", h.AdminList)
	adminGroup.GET("/products/new", h.AdminNewForm)
	adminGroup.POST("/products", h.AdminCreate)
	adminGroup.GET("/products/:id/edit", h.AdminEditForm)
	adminGroup.POST("/products/:id", h.AdminUpdate)
	adminGroup.POST("/products/:id/delete", h.AdminDelete)
}
