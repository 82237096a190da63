package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// TransactionRepository reads the coin ledger.
type TransactionRepository interface {
	List(ctx context.Context, page Pagination) (arena.Page[models.Transaction], error)
	Summary(ctx context.Context) (models.TransactionSummary, error)
}

type transactionRepository struct {
	upstream Upstream
}

// NewTransactionRepository constructs the transaction repository.
func NewTransactionRepository(upstream Upstream) TransactionRepository {
	return &transactionRepository{upstream: upstream}
}

func (r *transactionRepository) List(ctx context.Context, page Pagination) (arena.Page[models.Transaction], error) {
	page = page.normalize(20)
	var result arena.Page[models.Transaction]
	if err := r.upstream.Get(ctx, arena.PagePath("/transactions", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Transaction]{}, err
	}
	return result, nil
}

func (r *transactionRepository) Summary(ctx context.Context) (models.TransactionSummary, error) {
	var summary models.TransactionSummary
	if err := r.upstream.Get(ctx, "/transactions/summary", &summary); err != nil {
		return models.TransactionSummary{}, err
	}
	return summary, nil
}
