package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// AdminChallengeHandler manages the weekly challenges.
type AdminChallengeHandler struct {
	service service.AdminChallengeService
	logger  zerolog.Logger
}

// NewAdminChallengeHandler constructs the handler.
func NewAdminChallengeHandler(service service.AdminChallengeService, logger zerolog.Logger) *AdminChallengeHandler {
	return &AdminChallengeHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_challenge_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminChallengeHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/activate", h.activate)
	router.Post("/:id/deactivate", h.deactivate)
	router.Get("/:id/submissions", h.submissions)
}

func (h *AdminChallengeHandler) list(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list challenges")
	}
	return utils.OK(c, result.Items, "challenges retrieved", result.Pagination)
}

func (h *AdminChallengeHandler) get(c *fiber.Ctx) error {
	challenge, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load challenge")
	}
	return utils.SendSuccess(c, "challenge", challenge)
}

func (h *AdminChallengeHandler) create(c *fiber.Ctx) error {
	var payload dto.ChallengeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	challenge, err := h.service.Create(requestContext(c), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create challenge")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "challenge created", challenge)
}

func (h *AdminChallengeHandler) update(c *fiber.Ctx) error {
	var payload dto.ChallengeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	challenge, err := h.service.Update(requestContext(c), c.Params("id"), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update challenge")
	}
	return utils.SendSuccess(c, "challenge updated", challenge)
}

func (h *AdminChallengeHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id"), middleware.Actor(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete challenge")
	}
	return utils.SendSuccess(c, "challenge deleted", nil)
}

func (h *AdminChallengeHandler) activate(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *AdminChallengeHandler) deactivate(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *AdminChallengeHandler) setActive(c *fiber.Ctx, active bool) error {
	challenge, err := h.service.SetActive(requestContext(c), c.Params("id"), active, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to change challenge state")
	}
	message := "challenge deactivated"
	if active {
		message = "challenge activated"
	}
	return utils.SendSuccess(c, message, challenge)
}

func (h *AdminChallengeHandler) submissions(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Submissions(requestContext(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list challenge submissions")
	}
	return utils.OK(c, result.Items, "submissions retrieved", result.Pagination)
}
