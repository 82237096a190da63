package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/session"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// UserHandler serves the viewer's profile, ledger, leaderboards and layout preferences.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds the user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/profile", h.profile)
	router.Get("/leaderboard", h.leaderboard)
	router.Get("/leaderboard/weekly", h.weeklyLeaderboard)
	router.Get("/transactions", h.transactions)
	router.Get("/transactions/summary", h.transactionSummary)
	router.Get("/preferences", h.preferences)
	router.Patch("/preferences", h.updatePreferences)
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	user, err := h.service.Profile(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile", user)
}

func (h *UserHandler) leaderboard(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.Leaderboard(requestContext(c), limit)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load leaderboard")
	}
	return utils.SendSuccess(c, "leaderboard", entries)
}

func (h *UserHandler) weeklyLeaderboard(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.WeeklyLeaderboard(requestContext(c), limit)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load weekly leaderboard")
	}
	return utils.SendSuccess(c, "weekly leaderboard", entries)
}

func (h *UserHandler) transactions(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Transactions(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load transactions")
	}
	return utils.OK(c, result.Items, "transactions", result.Pagination)
}

func (h *UserHandler) transactionSummary(c *fiber.Ctx) error {
	summary, err := h.service.TransactionSummary(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load transaction summary")
	}
	return utils.SendSuccess(c, "transaction summary", summary)
}

func (h *UserHandler) preferences(c *fiber.Ctx) error {
	prefs, err := h.service.Preferences(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load preferences")
	}
	return utils.SendSuccess(c, "preferences", prefs)
}

func (h *UserHandler) updatePreferences(c *fiber.Ctx) error {
	var patch session.PreferencesPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	prefs, err := h.service.UpdatePreferences(requestContext(c), middleware.UserID(c), patch)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update preferences")
	}
	return utils.SendSuccess(c, "preferences updated", prefs)
}
