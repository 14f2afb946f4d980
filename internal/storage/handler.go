package storage

import (
	"bytes"
	"net/url"
	"path"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves bucket objects to holders of a signed URL.
type Handler struct {
	bucket *Bucket
	signer *Signer
	log    *zap.Logger
}

func NewHandler(bucket *Bucket, signer *Signer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{bucket: bucket, signer: signer, log: log}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get(objectRoute+"*", h.getObject)
}

// RegisterAdminRoutes lets admins upload design files and bundles.
func (h *Handler) RegisterAdminRoutes(admin fiber.Router) {
	admin.Put("/storage/object/*", h.putObject)
}

func (h *Handler) putObject(c *fiber.Ctx) error {
	objectPath, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": ErrInvalidPath.Error()})
	}
	clean, err := cleanPath(objectPath)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if len(c.Body()) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "empty body"})
	}
	if err := h.bucket.Put(c.UserContext(), clean, bytes.NewReader(c.Body())); err != nil {
		h.log.Error("failed to store object", zap.String("path", clean), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to store object"})
	}
	h.log.Info("object stored", zap.String("path", clean), zap.Int("bytes", len(c.Body())))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"path": clean})
}

func (h *Handler) getObject(c *fiber.Ctx) error {
	objectPath, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": ErrInvalidPath.Error()})
	}
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing token"})
	}
	if err := h.signer.Verify(token, objectPath); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	}

	rc, size, err := h.bucket.Open(objectPath)
	switch err {
	case nil:
	case ErrNotFound, ErrInvalidPath:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": ErrNotFound.Error()})
	default:
		h.log.Error("failed to open object", zap.String("path", objectPath), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to read object"})
	}

	c.Attachment(path.Base(objectPath))
	return c.SendStream(rc, int(size))
}
