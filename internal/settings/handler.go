package settings

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterAdminRoutes(admin fiber.Router) {
	admin.Get("/settings/pdf", h.getSettings)
	admin.Put("/settings/pdf", h.updateSettings)
}

func (h *Handler) getSettings(c *fiber.Ctx) error {
	s, err := h.service.Get(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(s)
}

func (h *Handler) updateSettings(c *fiber.Ctx) error {
	payload := new(PdfSettings)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	payload.Logo = strings.TrimSpace(payload.Logo)

	s, err := h.service.Update(c.UserContext(), *payload)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(s)
}
