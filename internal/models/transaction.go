package models

import "time"

// TransactionType classifies coin ledger entries.
type TransactionType string

// Ledger entry types.
const (
	TransactionLevelUpReward  TransactionType = "LEVEL_UP_REWARD"
	TransactionChallengeBonus TransactionType = "CHALLENGE_BONUS"
	TransactionShopPurchase   TransactionType = "SHOP_PURCHASE"
	TransactionAdminGrant     TransactionType = "ADMIN_GRANT"
)

var transactionLabels = map[TransactionType]string{
	TransactionLevelUpReward:  "Level Up Reward",
	TransactionChallengeBonus: "Challenge Bonus",
	TransactionShopPurchase:   "Shop Purchase",
	TransactionAdminGrant:     "Admin Grant",
}

// Label returns the display label of the transaction type.
func (t TransactionType) Label() string {
	if label, ok := transactionLabels[t]; ok {
		return label
	}
	return string(t)
}

// Transaction is a coin ledger entry.
type Transaction struct {
	ID            string          `json:"id"`
	Type          TransactionType `json:"type"`
	Amount        int             `json:"amount"`
	Balance       int             `json:"balance"`
	Description   string          `json:"description"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	ReferenceType string          `json:"referenceType,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransactionSummary totals a user's ledger.
type TransactionSummary struct {
	TotalEarned int                     `json:"totalEarned"`
	TotalSpent  int                     `json:"totalSpent"`
	ByType      map[TransactionType]int `json:"byType"`
}
