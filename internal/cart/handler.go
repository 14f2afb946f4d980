package cart

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/embroidery-shop-backend/internal/user"
)

// Handler delegates cart operations to the cart service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/cart", h.getCart)
	app.Post("/api/v1/cart", h.addToCart)
	app.Delete("/api/v1/cart/:productId<int>", h.removeFromCart)
	app.Delete("/api/v1/cart", h.clearCart)
}

type cartRequest struct {
	ProductID int `json:"productId"`
}

func (h *Handler) addToCart(c *fiber.Ctx) error {
	payload := new(cartRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	items, err := h.service.Add(c.UserContext(), userID, payload.ProductID)
	if err != nil {
		return cartError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	items, err := h.service.GetCart(c.UserContext(), userID)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) removeFromCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	productID, err := c.ParamsInt("productId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}

	items, err := h.service.Remove(c.UserContext(), userID, productID)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Clear(c.UserContext(), userID); err != nil {
		return cartError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func cartError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrProductNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case ErrNotInCart:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case ErrAlreadyPurchased:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "You already own this design"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
