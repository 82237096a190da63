package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// AdminShopHandler manages shop items and purchase redemption.
type AdminShopHandler struct {
	service service.AdminShopService
	logger  zerolog.Logger
}

// NewAdminShopHandler constructs the handler.
func NewAdminShopHandler(service service.AdminShopService, logger zerolog.Logger) *AdminShopHandler {
	return &AdminShopHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_shop_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminShopHandler) Register(router fiber.Router) {
	router.Get("/items", h.items)
	router.Post("/items", h.create)
	router.Put("/items/:id", h.update)
	router.Delete("/items/:id", h.delete)
	router.Get("/purchases/code/:code", h.lookup)
	router.Post("/purchases/:id/redeem", h.redeem)
}

func (h *AdminShopHandler) items(c *fiber.Ctx) error {
	items, err := h.service.Items(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list shop items")
	}
	return utils.SendSuccess(c, "shop items", items)
}

func (h *AdminShopHandler) create(c *fiber.Ctx) error {
	var payload dto.ShopItemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.Create(requestContext(c), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create shop item")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "shop item created", item)
}

func (h *AdminShopHandler) update(c *fiber.Ctx) error {
	var payload dto.ShopItemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.Update(requestContext(c), c.Params("id"), payload, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update shop item")
	}
	return utils.SendSuccess(c, "shop item updated", item)
}

func (h *AdminShopHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id"), middleware.Actor(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete shop item")
	}
	return utils.SendSuccess(c, "shop item deleted", nil)
}

func (h *AdminShopHandler) lookup(c *fiber.Ctx) error {
	purchase, err := h.service.LookupCode(requestContext(c), c.Params("code"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to look up redemption code")
	}
	return utils.SendSuccess(c, "purchase", purchase)
}

func (h *AdminShopHandler) redeem(c *fiber.Ctx) error {
	purchase, err := h.service.Redeem(requestContext(c), c.Params("id"), middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to redeem purchase")
	}
	return utils.SendSuccess(c, "purchase redeemed", purchase)
}
