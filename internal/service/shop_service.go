package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// ShopService serves the shop catalogue and the viewer's purchases.
type ShopService interface {
	Catalog(ctx context.Context, userID string) (dto.ShopCatalogResponse, error)
	Purchase(ctx context.Context, userID, itemID string, req dto.PurchaseRequest) (models.PurchaseResult, error)
	Purchases(ctx context.Context, userID string, req dto.ListRequest) (dto.PurchaseListResponse, error)
}

type shopService struct {
	shop      repository.ShopRepository
	users     UserService
	cache     *cache.Cache
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewShopService constructs the shop service.
func NewShopService(shop repository.ShopRepository, users UserService, c *cache.Cache, validate *validator.Validate, logger zerolog.Logger) ShopService {
	return &shopService{
		shop:      shop,
		users:     users,
		cache:     c,
		validator: validate,
		logger:    logger.With().Str("component", "shop_service").Logger(),
	}
}

// Catalog lists the shop items and fills in whether the viewer can afford
// each one when the upstream did not say.
func (s *shopService) Catalog(ctx context.Context, userID string) (dto.ShopCatalogResponse, error) {
	items, err := cache.Remember(ctx, s.cache, cache.Key("shop", "items"), []string{cache.TagShop}, s.shop.Items)
	if err != nil {
		return dto.ShopCatalogResponse{}, err
	}

	profile, err := s.users.Profile(ctx, userID)
	if err != nil {
		return dto.ShopCatalogResponse{}, err
	}

	annotated := make([]models.ShopItem, 0, len(items))
	for _, item := range items {
		if item.CanAfford == nil {
			affordable := canAfford(item, profile)
			item.CanAfford = &affordable
		}
		annotated = append(annotated, item)
	}

	return dto.ShopCatalogResponse{Items: annotated, Coins: profile.Coins, Level: profile.Level}, nil
}

func (s *shopService) Purchase(ctx context.Context, userID, itemID string, req dto.PurchaseRequest) (models.PurchaseResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.PurchaseResult{}, err
	}

	result, err := s.shop.Purchase(ctx, itemID, req.Quantity)
	if err != nil {
		return models.PurchaseResult{}, err
	}

	invalidate(ctx, s.cache, s.logger,
		cache.TagShop,
		cache.UserTag(cache.KindProfile, userID),
		cache.UserTag(cache.KindTransactions, userID),
		cache.UserTag(cache.KindPurchases, userID),
	)
	s.logger.Info().Str("user_id", userID).Str("item_id", itemID).Str("purchase_id", result.Purchase.ID).Msg("item purchased")
	return result, nil
}

func (s *shopService) Purchases(ctx context.Context, userID string, req dto.ListRequest) (dto.PurchaseListResponse, error) {
	page := pagination(req)
	key := cache.Key("purchases", userID, strconv.Itoa(page.Page), strconv.Itoa(page.Limit))

	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindPurchases, userID)}, func(ctx context.Context) (dto.PurchaseListResponse, error) {
		result, err := s.shop.MyPurchases(ctx, page)
		if err != nil {
			return dto.PurchaseListResponse{}, err
		}
		items := result.Data
		if items == nil {
			items = []models.Purchase{}
		}
		return dto.PurchaseListResponse{Items: items, Pagination: dto.NewPaginationMeta(result.Meta)}, nil
	})
}

func canAfford(item models.ShopItem, user models.User) bool {
	if item.Stock != nil && *item.Stock <= 0 {
		return false
	}
	return user.Coins >= item.CoinPrice && user.Level >= item.MinLevel
}
