package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// AdminUserHandler manages students, coin grants and explanation reviews.
type AdminUserHandler struct {
	service service.AdminUserService
	logger  zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(service service.AdminUserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminUserHandler) Register(router fiber.Router) {
	router.Get("/users", h.users)
	router.Post("/users/:id/coins", h.grantCoins)
	router.Get("/reviews", h.pendingReviews)
	router.Post("/reviews/:id", h.review)
	router.Get("/analysis", h.pendingAnalysis)
	router.Post("/analysis/:id", h.analyze)
}

func (h *AdminUserHandler) users(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Users(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list users")
	}
	return utils.OK(c, result.Items, "users retrieved", result.Pagination)
}

func (h *AdminUserHandler) grantCoins(c *fiber.Ctx) error {
	var payload dto.GrantCoinsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.GrantCoins(requestContext(c), c.Params("id"), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to grant coins")
	}
	return utils.SendSuccess(c, "coins granted", user)
}

func (h *AdminUserHandler) pendingReviews(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.PendingReviews(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list pending reviews")
	}
	return utils.OK(c, result.Items, "pending reviews", result.Pagination)
}

func (h *AdminUserHandler) review(c *fiber.Ctx) error {
	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Review(requestContext(c), c.Params("id"), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to review submission")
	}
	return utils.SendSuccess(c, "review saved", result)
}

func (h *AdminUserHandler) pendingAnalysis(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.PendingAnalysis(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list pending analysis")
	}
	return utils.OK(c, result.Items, "pending analysis", result.Pagination)
}

func (h *AdminUserHandler) analyze(c *fiber.Ctx) error {
	result, err := h.service.Analyze(requestContext(c), c.Params("id"), middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to analyze submission")
	}
	return utils.SendSuccess(c, "analysis completed", result)
}
