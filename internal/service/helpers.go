package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/repository"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

const backgroundTimeout = 10 * time.Second

// UnavailableNotice turns the "no active challenge" family of upstream errors
// into the message shown to the student.
func UnavailableNotice(err error) (string, bool) {
	if !arena.IsChallengeUnavailable(err) {
		return "", false
	}
	apiErr, _ := arena.AsAPIError(err)
	return apiErr.Message, true
}

// detach keeps the upstream credentials of ctx for work that outlives the request.
func detach(ctx context.Context) context.Context {
	return carryUpstream(context.Background(), ctx)
}

// carryUpstream copies the bearer token and correlation id of from into ctx.
func carryUpstream(ctx, from context.Context) context.Context {
	ctx = arena.WithToken(ctx, arena.TokenFromContext(from))
	return arena.WithCorrelation(ctx, arena.CorrelationFromContext(from))
}

func invalidate(ctx context.Context, c *cache.Cache, logger zerolog.Logger, tags ...string) {
	if err := c.Invalidate(ctx, tags...); err != nil {
		logger.Warn().Err(err).Strs("tags", tags).Msg("failed to invalidate cache")
	}
}

// ListResult is a page of items in the portal envelope.
type ListResult[T any] struct {
	Items      []T                `json:"items"`
	Pagination dto.PaginationMeta `json:"pagination"`
}

func listResult[T any](page arena.Page[T]) ListResult[T] {
	items := page.Data
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Pagination: dto.NewPaginationMeta(page.Meta)}
}

func pagination(req dto.ListRequest) repository.Pagination {
	return repository.Pagination{Page: maxInt(req.Page, 1), Limit: clampPageLimit(req.Limit)}
}

func record(ctx context.Context, activity ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if activity == nil {
		return
	}
	if _, err := activity.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record admin activity")
	}
}
