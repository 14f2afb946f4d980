package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/embroidery-shop-backend/internal/order"
	"github.com/wichananm65/embroidery-shop-backend/internal/payment"
	"github.com/wichananm65/embroidery-shop-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/checkout", h.getQuote)
	app.Post("/api/v1/checkout/coupon", h.applyCoupon)
	app.Delete("/api/v1/checkout/coupon", h.removeCoupon)
	app.Post("/api/v1/checkout/orders", h.createOrder)
	app.Post("/api/v1/checkout/orders/:ref/capture", h.captureOrder)
}

type couponRequest struct {
	Code string `json:"code"`
}

type captureRequest struct {
	ExternalRef string `json:"externalOrderRef"`
}

func (h *Handler) getQuote(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	q, err := h.service.Quote(c.UserContext(), userID)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(q)
}

func (h *Handler) applyCoupon(c *fiber.Ctx) error {
	payload := new(couponRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	// anonymous callers get the same answer as an unknown code
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Coupon not found"})
	}
	q, err := h.service.ApplyCoupon(c.UserContext(), userID, payload.Code)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(q)
}

func (h *Handler) removeCoupon(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	q, err := h.service.RemoveCoupon(c.UserContext(), userID)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(q)
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	po, err := h.service.CreatePaymentOrder(c.UserContext(), userID)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(po)
}

func (h *Handler) captureOrder(c *fiber.Ctx) error {
	payload := new(captureRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ExternalRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "externalOrderRef is required"})
	}
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	res, err := h.service.CapturePaymentOrder(c.UserContext(), userID, c.Params("ref"), payload.ExternalRef)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(res)
}

func checkoutError(c *fiber.Ctx, err error) error {
	var pe *payment.ProviderError
	if errors.As(err, &pe) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"status": "failure", "message": pe.Message})
	}
	switch {
	case errors.Is(err, ErrCouponNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Coupon not found"})
	case errors.Is(err, order.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrRefMismatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrOrderClosed), errors.Is(err, ErrAlreadyOwned):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
