package product

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.getProducts)
	app.Get("/api/v1/products/:id<int>", h.getProduct)
}

// RegisterAdminRoutes expects a router already guarded by user.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(admin fiber.Router) {
	admin.Post("/products", h.createProduct)
	admin.Put("/products/:id<int>", h.updateProduct)
	admin.Delete("/products/:id<int>", h.deleteProduct)
	admin.Put("/products/:id<int>/bundle-path", h.setBundlePath)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	categoryID := c.QueryInt("category", 0)
	products, err := h.service.List(c.UserContext(), categoryID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	for i := range products {
		products[i] = PublicView(products[i])
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(PublicView(p))
}

func validateProductPayload(p *Product) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Title) == "" {
		errs["title"] = "title is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "price must be >= 0"
	}
	if p.PreviousPrice != nil && p.PreviousPrice.IsNegative() {
		errs["previousPrice"] = "previousPrice must be >= 0"
	}
	if p.StitchCount < 0 || p.ColorChangeCount < 0 || p.ColorsUsed < 0 {
		errs["specs"] = "counts must be >= 0"
	}
	for _, f := range p.Files {
		if f.Path == "" || f.Filename == "" {
			errs["files"] = "every file needs a path and a filename"
			break
		}
	}
	return errs
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// validate payload and return all validation errors together
	if ves := validateProductPayload(p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	p.BundlePath = nil

	created, err := h.service.Create(c.UserContext(), *p)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	p := new(Product)
	if err := c.BodyParser(p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if ves := validateProductPayload(p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	updated, err := h.service.Update(c.UserContext(), id, *p)
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

type bundlePathRequest struct {
	Path string `json:"path"`
}

func (h *Handler) setBundlePath(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	payload := new(bundlePathRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.service.SetBundlePath(c.UserContext(), id, strings.TrimSpace(payload.Path)); err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Bundle path updated"})
}
