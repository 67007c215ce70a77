package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/middleware"
	"github.com/tradewindhq/tradewind/internal/templates/pages"
)

// Handler handles the storefront catalog pages and the admin product CRUD.
type Handler struct {
	service Service
}

// NewHandler creates a new catalog handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// --- Storefront ---

// Home renders the landing page with the featured strip (GET /).
func (h *Handler) Home(c echo.Context) error {
	featured, err := h.service.Featured(c.Request().Context())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return middleware.Render(c, http.StatusOK, pages.HomePage(productViews(featured)))
}

// List renders the full catalog grid (GET /products).
func (h *Handler) List(c echo.Context) error {
	products, err := h.service.Storefront(c.Request().Context())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return middleware.Render(c, http.StatusOK, pages.ProductListPage(productViews(products)))
}

// Detail renders one product page (GET /products/:slug).
func (h *Handler) Detail(c echo.Context) error {
	product, err := h.service.BySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, pages.ProductDetailPage(productView(*product)))
}

// --- Admin ---

// AdminList renders the product management table (GET /admin/products).
func (h *Handler) AdminList(c echo.Context) error {
	products, err := h.service.All(c.Request().Context())
	if err != nil {
		return apperror.NewInternal(err)
	}
	return middleware.Render(c, http.StatusOK, pages.AdminProductsPage(productViews(products)))
}

// AdminNewForm renders the empty product form (GET /admin/products/new).
func (h *Handler) AdminNewForm(c echo.Context) error {
	form := pages.ProductFormView{Currency: "USD", Active: true}
	return middleware.Render(c, http.StatusOK, pages.AdminProductFormPage(form, ""))
}

// AdminCreate handles the new product form (POST /admin/products).
func (h *Handler) AdminCreate(c echo.Context) error {
	var input ProductInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	bindCheckboxes(c, &input)

	if _, err := h.service.Create(c.Request().Context(), input); err != nil {
		return middleware.Render(c, http.StatusOK,
			pages.AdminProductFormPage(formView(0, input), apperror.SafeMessage(err)))
	}
	return c.Redirect(http.StatusSeeOther, "/admin/products")
}

// AdminEditForm renders the edit form (GET /admin/products/:id/edit).
func (h *Handler) AdminEditForm(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	product, err := h.service.ByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	form := pages.ProductFormView{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Currency:    product.Currency,
		ImageURL:    product.ImageURL,
		Stock:       product.Stock,
		Featured:    product.Featured,
		Active:      product.Active,
	}
	return middleware.Render(c, http.StatusOK, pages.AdminProductFormPage(form, ""))
}

// AdminUpdate handles the edit form (POST /admin/products/:id).
func (h *Handler) AdminUpdate(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var input ProductInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	bindCheckboxes(c, &input)

	if _, err := h.service.Update(c.Request().Context(), id, input); err != nil {
		return middleware.Render(c, http.StatusOK,
			pages.AdminProductFormPage(formView(id, input), apperror.SafeMessage(err)))
	}
	return c.Redirect(http.StatusSeeOther, "/admin/products")
}

// AdminDelete handles product deletion (POST /admin/products/:id/delete).
func (h *Handler) AdminDelete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/products")
}

// productID parses the :id route param.
func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid product id")
	}
	return id, nil
}

// bindCheckboxes maps HTML checkbox presence onto the bool fields. Unchecked
// boxes are absent from the form body, which echo's Bind reads as false
// only when the field is missing entirely — explicit here for clarity.
func bindCheckboxes(c echo.Context, input *ProductInput) {
	input.Featured = c.FormValue("featured") != ""
	input.Active = c.FormValue("active") != ""
}

// formView rebuilds the form state after a failed submit.
func formView(id int64, input ProductInput) pages.ProductFormView {
	return pages.ProductFormView{
		ID:          id,
		Slug:        input.Slug,
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Currency:    input.Currency,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		Featured:    input.Featured,
		Active:      input.Active,
	}
}

// productView maps a product onto the page view.
func productView(p Product) pages.ProductView {
	return pages.ProductView{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
		DescriptionHTML: p.Description,
		PriceCents:      p.PriceCents,
		Currency:        p.Currency,
		ImageURL:        p.ImageURL,
		Stock:           p.Stock,
		Featured:        p.Featured,
	}
}

func productViews(products []Product) []pages.ProductView {
	views := make([]pages.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	return views
}
