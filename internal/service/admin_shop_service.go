package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// ErrRedemptionCodeRequired is returned when a code lookup has no code.
var ErrRedemptionCodeRequired = errors.New("redemption code is required")

// AdminShopService handles the admin shop flows: item management and
// redemption at the counter.
type AdminShopService interface {
	Items(ctx context.Context) ([]models.ShopItem, error)
	Create(ctx context.Context, payload dto.ShopItemRequest, actor ActivityActor) (models.ShopItem, error)
	Update(ctx context.Context, id string, payload dto.ShopItemRequest, actor ActivityActor) (models.ShopItem, error)
	Delete(ctx context.Context, id string, actor ActivityActor) error
	LookupCode(ctx context.Context, code string) (models.Purchase, error)
	Redeem(ctx context.Context, purchaseID string, actor ActivityActor) (models.Purchase, error)
}

type adminShopService struct {
	shop      repository.ShopRepository
	cache     *cache.Cache
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAdminShopService constructs the service.
func NewAdminShopService(shop repository.ShopRepository, c *cache.Cache, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminShopService {
	return &adminShopService{
		shop:      shop,
		cache:     c,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "admin_shop_service").Logger(),
	}
}

func (s *adminShopService) Items(ctx context.Context) ([]models.ShopItem, error) {
	items, err := s.shop.Items(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ShopItem{}
	}
	return items, nil
}

func (s *adminShopService) Create(ctx context.Context, payload dto.ShopItemRequest, actor ActivityActor) (models.ShopItem, error) {
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.ShopItem{}, err
	}

	item, err := s.shop.CreateItem(ctx, payload.ToInput())
	if err != nil {
		return models.ShopItem{}, err
	}

	s.changed(ctx, actor, "shop_item.created", item.ID, map[string]interface{}{
		"name":      item.Name,
		"coinPrice": item.CoinPrice,
	})
	return item, nil
}

func (s *adminShopService) Update(ctx context.Context, id string, payload dto.ShopItemRequest, actor ActivityActor) (models.ShopItem, error) {
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.ShopItem{}, err
	}

	item, err := s.shop.UpdateItem(ctx, id, payload.ToInput())
	if err != nil {
		return models.ShopItem{}, err
	}

	s.changed(ctx, actor, "shop_item.updated", id, map[string]interface{}{"name": item.Name})
	return item, nil
}

func (s *adminShopService) Delete(ctx context.Context, id string, actor ActivityActor) error {
	if err := s.shop.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, actor, "shop_item.deleted", id, nil)
	return nil
}

// LookupCode finds the purchase a student presents at the counter. Codes are
// matched case-insensitively.
func (s *adminShopService) LookupCode(ctx context.Context, code string) (models.Purchase, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.Purchase{}, ErrRedemptionCodeRequired
	}
	return s.shop.PurchaseByCode(ctx, code)
}

func (s *adminShopService) Redeem(ctx context.Context, purchaseID string, actor ActivityActor) (models.Purchase, error) {
	purchase, err := s.shop.Redeem(ctx, purchaseID)
	if err != nil {
		return models.Purchase{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "purchase.redeemed",
		EntityType: "purchase",
		EntityID:   purchaseID,
		Metadata:   map[string]interface{}{"itemId": purchase.Item.ID(), "quantity": purchase.Quantity},
	})
	s.logger.Info().Str("purchase_id", purchaseID).Str("actor_id", actor.ID).Msg("purchase redeemed")
	return purchase, nil
}

func (s *adminShopService) changed(ctx context.Context, actor ActivityActor, action, id string, metadata map[string]interface{}) {
	invalidate(ctx, s.cache, s.logger, cache.TagShop)
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "shop_item",
		EntityID:   id,
		Metadata:   metadata,
	})
}
