package bundle

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"github.com/wichananm65/embroidery-shop-backend/internal/user"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(s *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/products/:id<int>/bundle", h.download)
}

func (h *Handler) download(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	productID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid product id"})
	}

	d, err := h.service.Download(c.UserContext(), userID, productID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotPurchased):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	default:
		h.log.Error("bundle download failed", zap.Int("product_id", productID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Could not prepare the download"})
	}

	if d.Archive == nil {
		return c.JSON(d)
	}
	c.Attachment(d.Filename)
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Send(d.Archive.Data)
}
