package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// AdminAnnouncementHandler manages admin announcement routes.
type AdminAnnouncementHandler struct {
	service service.AdminAnnouncementService
	logger  zerolog.Logger
}

// NewAdminAnnouncementHandler constructs the handler.
func NewAdminAnnouncementHandler(service service.AdminAnnouncementService, logger zerolog.Logger) *AdminAnnouncementHandler {
	return &AdminAnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_announcement_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminAnnouncementHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/publish", h.publish)
	router.Post("/:id/unpublish", h.unpublish)
	router.Post("/:id/pin", h.togglePin)
}

func (h *AdminAnnouncementHandler) list(c *fiber.Ctx) error {
	items, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list announcements")
	}
	return utils.SendSuccess(c, "announcements retrieved", items)
}

func (h *AdminAnnouncementHandler) get(c *fiber.Ctx) error {
	announcement, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load announcement")
	}
	return utils.SendSuccess(c, "announcement", announcement)
}

func (h *AdminAnnouncementHandler) create(c *fiber.Ctx) error {
	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	announcement, err := h.service.Create(requestContext(c), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create announcement")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "announcement created", announcement)
}

func (h *AdminAnnouncementHandler) update(c *fiber.Ctx) error {
	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	announcement, err := h.service.Update(requestContext(c), c.Params("id"), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update announcement")
	}
	return utils.SendSuccess(c, "announcement updated", announcement)
}

func (h *AdminAnnouncementHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id"), middleware.Actor(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete announcement")
	}
	return utils.SendSuccess(c, "announcement deleted", nil)
}

func (h *AdminAnnouncementHandler) publish(c *fiber.Ctx) error {
	announcement, err := h.service.SetPublished(requestContext(c), c.Params("id"), true, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to publish announcement")
	}
	return utils.SendSuccess(c, "announcement published", announcement)
}

func (h *AdminAnnouncementHandler) unpublish(c *fiber.Ctx) error {
	announcement, err := h.service.SetPublished(requestContext(c), c.Params("id"), false, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to unpublish announcement")
	}
	return utils.SendSuccess(c, "announcement unpublished", announcement)
}

func (h *AdminAnnouncementHandler) togglePin(c *fiber.Ctx) error {
	announcement, err := h.service.TogglePin(requestContext(c), c.Params("id"), middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to pin announcement")
	}
	return utils.SendSuccess(c, "announcement updated", announcement)
}
