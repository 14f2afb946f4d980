package coupon

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/embroidery-shop-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/coupons", h.listMine)
}

// RegisterAdminRoutes expects a router already guarded by user.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(admin fiber.Router) {
	admin.Post("/coupons", h.issueBatch)
}

func (h *Handler) listMine(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	coupons, err := h.service.ListForUser(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(coupons)
}

func (h *Handler) issueBatch(c *fiber.Ctx) error {
	payload := new(IssueRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	created, err := h.service.IssueBatch(c.UserContext(), *payload)
	if err != nil {
		if err == ErrInvalidBatch {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error(), "issued": created})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
