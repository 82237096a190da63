package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
	"github.com/noah-isme/gema-arena/internal/session"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// UserService serves the viewer's profile, ledger, leaderboards and layout preferences.
type UserService interface {
	Profile(ctx context.Context, userID string) (models.User, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	WeeklyLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Transactions(ctx context.Context, userID string, req dto.ListRequest) (dto.TransactionListResponse, error)
	TransactionSummary(ctx context.Context, userID string) (models.TransactionSummary, error)
	Preferences(ctx context.Context, userID string) (session.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, patch session.PreferencesPatch) (session.Preferences, error)
}

type userService struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	store        *session.Store
	cache        *cache.Cache
	validator    *validator.Validate
	logger       zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, transactions repository.TransactionRepository, store *session.Store, c *cache.Cache, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:        users,
		transactions: transactions,
		store:        store,
		cache:        c,
		validator:    validate,
		logger:       logger.With().Str("component", "user_service").Logger(),
	}
}

// Profile returns the viewer's profile and refreshes the session copy used
// by the auth middleware.
func (s *userService) Profile(ctx context.Context, userID string) (models.User, error) {
	key := cache.Key("profile", userID)
	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindProfile, userID)}, func(ctx context.Context) (models.User, error) {
		user, err := s.users.Profile(ctx)
		if err != nil {
			return models.User{}, err
		}
		user = user.WithTierDefaults()
		if s.store != nil && user.ID != "" {
			if err := s.store.SetProfile(ctx, user); err != nil {
				s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh session profile")
			}
		}
		return user, nil
	})
}

func (s *userService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = clampLeaderboardLimit(limit)
	key := cache.Key("leaderboard", "overall", strconv.Itoa(limit))
	return cache.Remember(ctx, s.cache, key, []string{cache.TagLeaderboard}, func(ctx context.Context) ([]models.LeaderboardEntry, error) {
		entries, err := s.users.Leaderboard(ctx, limit)
		if err != nil {
			return nil, err
		}
		return withTierColors(entries), nil
	})
}

func (s *userService) WeeklyLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = clampLeaderboardLimit(limit)
	key := cache.Key("leaderboard", "weekly", strconv.Itoa(limit))
	return cache.Remember(ctx, s.cache, key, []string{cache.TagLeaderboard}, func(ctx context.Context) ([]models.LeaderboardEntry, error) {
		entries, err := s.users.WeeklyLeaderboard(ctx, limit)
		if err != nil {
			return nil, err
		}
		return withTierColors(entries), nil
	})
}

func (s *userService) Transactions(ctx context.Context, userID string, req dto.ListRequest) (dto.TransactionListResponse, error) {
	page := pagination(req)
	key := cache.Key("transactions", userID, strconv.Itoa(page.Page), strconv.Itoa(page.Limit))

	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindTransactions, userID)}, func(ctx context.Context) (dto.TransactionListResponse, error) {
		result, err := s.transactions.List(ctx, page)
		if err != nil {
			return dto.TransactionListResponse{}, err
		}
		items := make([]dto.TransactionView, 0, len(result.Data))
		for _, transaction := range result.Data {
			items = append(items, dto.TransactionView{Transaction: transaction, TypeLabel: transaction.Type.Label()})
		}
		return dto.TransactionListResponse{Items: items, Pagination: dto.NewPaginationMeta(result.Meta)}, nil
	})
}

func (s *userService) TransactionSummary(ctx context.Context, userID string) (models.TransactionSummary, error) {
	key := cache.Key("transactions", userID, "summary")
	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindTransactions, userID)}, func(ctx context.Context) (models.TransactionSummary, error) {
		summary, err := s.transactions.Summary(ctx)
		if err != nil {
			return models.TransactionSummary{}, err
		}
		if summary.ByType == nil {
			summary.ByType = map[models.TransactionType]int{}
		}
		return summary, nil
	})
}

func (s *userService) Preferences(ctx context.Context, userID string) (session.Preferences, error) {
	if s.store == nil {
		return session.Preferences{}, nil
	}
	return s.store.Preferences(ctx, userID)
}

func (s *userService) UpdatePreferences(ctx context.Context, userID string, patch session.PreferencesPatch) (session.Preferences, error) {
	if err := s.validator.Struct(patch); err != nil {
		return session.Preferences{}, err
	}
	if s.store == nil {
		return session.Preferences{}, fmt.Errorf("session store is not configured")
	}
	return s.store.UpdatePreferences(ctx, userID, patch)
}

func withTierColors(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	for i := range entries {
		if entries[i].Tier == "" {
			entries[i].Tier = models.TierForLevel(entries[i].Level)
		}
		if entries[i].TierColor == "" {
			entries[i].TierColor = models.TierColor(entries[i].Tier)
		}
	}
	return entries
}

func clampLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}

func clampPageLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
