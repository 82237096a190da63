package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// AnnouncementHandler handles the student announcement feed.
type AnnouncementHandler struct {
	service service.AnnouncementService
	logger  zerolog.Logger
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "announcement_handler").Logger(),
	}
}

// Register wires routes for announcements.
func (h *AnnouncementHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AnnouncementHandler) list(c *fiber.Ctx) error {
	items, err := h.service.Published(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list announcements")
	}
	return utils.SendSuccess(c, "announcements retrieved", items)
}
