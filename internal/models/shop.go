package models

import "time"

// ShopItem is a reward that can be bought with coins.
type ShopItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CoinPrice   int        `json:"coinPrice"`
	Stock       *int       `json:"stock"`
	MinLevel    int        `json:"minLevel"`
	IsActive    *bool      `json:"isActive,omitempty"`
	CanAfford   *bool      `json:"canAfford,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Purchase is a bought item awaiting or past redemption.
type Purchase struct {
	ID             string     `json:"id"`
	Item           ItemRef    `json:"itemId"`
	Quantity       int        `json:"quantity"`
	TotalCost      int        `json:"totalCost"`
	RedemptionCode string     `json:"redemptionCode"`
	IsRedeemed     bool       `json:"isRedeemed,omitempty"`
	RedeemedAt     *time.Time `json:"redeemedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// PurchaseResult is returned by the purchase endpoint.
type PurchaseResult struct {
	Message  string   `json:"message"`
	Purchase Purchase `json:"purchase"`
}

// ShopItemInput is the admin create/update payload of a shop item.
type ShopItemInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	CoinPrice   *int    `json:"coinPrice,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	MinLevel    *int    `json:"minLevel,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}
