package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/middleware"
	"github.com/noah-isme/gema-arena/internal/service"
	"github.com/noah-isme/gema-arena/internal/utils"
)

// ShopHandler serves the shop catalogue, purchases and the viewer's purchase history.
type ShopHandler struct {
	service service.ShopService
	logger  zerolog.Logger
}

// NewShopHandler constructs the handler.
func NewShopHandler(service service.ShopService, logger zerolog.Logger) *ShopHandler {
	return &ShopHandler{
		service: service,
		logger:  logger.With().Str("component", "shop_handler").Logger(),
	}
}

// Register binds the shop routes.
func (h *ShopHandler) Register(router fiber.Router) {
	router.Get("/items", h.catalog)
	router.Post("/items/:id/purchase", h.purchase)
	router.Get("/purchases", h.purchases)
}

func (h *ShopHandler) catalog(c *fiber.Ctx) error {
	catalog, err := h.service.Catalog(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load shop")
	}
	return utils.SendSuccess(c, "shop items", catalog)
}

func (h *ShopHandler) purchase(c *fiber.Ctx) error {
	var payload dto.PurchaseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.service.Purchase(requestContext(c), middleware.UserID(c), c.Params("id"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to purchase item")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "item purchased", result)
}

func (h *ShopHandler) purchases(c *fiber.Ctx) error {
	req, err := listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Purchases(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load purchases")
	}
	return utils.OK(c, result.Items, "purchases", result.Pagination)
}
