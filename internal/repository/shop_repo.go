package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// ShopRepository covers the shop catalogue, purchases and redemption.
type ShopRepository interface {
	Items(ctx context.Context) ([]models.ShopItem, error)
	Purchase(ctx context.Context, itemID string, quantity int) (models.PurchaseResult, error)
	MyPurchases(ctx context.Context, page Pagination) (arena.Page[models.Purchase], error)
	CreateItem(ctx context.Context, input models.ShopItemInput) (models.ShopItem, error)
	UpdateItem(ctx context.Context, id string, input models.ShopItemInput) (models.ShopItem, error)
	DeleteItem(ctx context.Context, id string) error
	PurchaseByCode(ctx context.Context, code string) (models.Purchase, error)
	Redeem(ctx context.Context, purchaseID string) (models.Purchase, error)
}

type shopRepository struct {
	upstream Upstream
}

// NewShopRepository constructs the shop repository.
func NewShopRepository(upstream Upstream) ShopRepository {
	return &shopRepository{upstream: upstream}
}

func (r *shopRepository) Items(ctx context.Context) ([]models.ShopItem, error) {
	items := make([]models.ShopItem, 0)
	if err := r.upstream.Get(ctx, "/shop/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *shopRepository) Purchase(ctx context.Context, itemID string, quantity int) (models.PurchaseResult, error) {
	if quantity <= 0 {
		quantity = 1
	}
	body := map[string]int{"quantity": quantity}
	var result models.PurchaseResult
	if err := r.upstream.Post(ctx, resourcePath("/shop/purchase/%s", itemID), body, &result); err != nil {
		return models.PurchaseResult{}, err
	}
	return result, nil
}

func (r *shopRepository) MyPurchases(ctx context.Context, page Pagination) (arena.Page[models.Purchase], error) {
	page = page.normalize(20)
	var result arena.Page[models.Purchase]
	if err := r.upstream.Get(ctx, arena.PagePath("/shop/purchases", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Purchase]{}, err
	}
	return result, nil
}

func (r *shopRepository) CreateItem(ctx context.Context, input models.ShopItemInput) (models.ShopItem, error) {
	var item models.ShopItem
	if err := r.upstream.Post(ctx, "/shop/items", input, &item); err != nil {
		return models.ShopItem{}, err
	}
	return item, nil
}

func (r *shopRepository) UpdateItem(ctx context.Context, id string, input models.ShopItemInput) (models.ShopItem, error) {
	var item models.ShopItem
	if err := r.upstream.Patch(ctx, resourcePath("/shop/items/%s", id), input, &item); err != nil {
		return models.ShopItem{}, err
	}
	return item, nil
}

func (r *shopRepository) DeleteItem(ctx context.Context, id string) error {
	return r.upstream.Delete(ctx, resourcePath("/shop/items/%s", id), nil)
}

func (r *shopRepository) PurchaseByCode(ctx context.Context, code string) (models.Purchase, error) {
	var purchase models.Purchase
	if err := r.upstream.Get(ctx, resourcePath("/shop/purchases/code/%s", code), &purchase); err != nil {
		return models.Purchase{}, err
	}
	return purchase, nil
}

func (r *shopRepository) Redeem(ctx context.Context, purchaseID string) (models.Purchase, error) {
	var purchase models.Purchase
	if err := r.upstream.Post(ctx, resourcePath("/shop/purchases/%s/redeem", purchaseID), nil, &purchase); err != nil {
		return models.Purchase{}, err
	}
	return purchase, nil
}
