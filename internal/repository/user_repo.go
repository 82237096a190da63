package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// UserRepository covers profiles, leaderboards and admin user management.
type UserRepository interface {
	Profile(ctx context.Context) (models.User, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	WeeklyLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	List(ctx context.Context, page Pagination) (arena.Page[models.User], error)
	GrantCoins(ctx context.Context, userID string, input models.GrantCoinsInput) (models.User, error)
}

type userRepository struct {
	upstream Upstream
}

// NewUserRepository constructs the user repository.
func NewUserRepository(upstream Upstream) UserRepository {
	return &userRepository{upstream: upstream}
}

func (r *userRepository) Profile(ctx context.Context) (models.User, error) {
	var user models.User
	if err := r.upstream.Get(ctx, "/users/profile", &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, "/users/leaderboard", limit)
}

func (r *userRepository) WeeklyLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return r.leaderboard(ctx, "/users/leaderboard/weekly", limit)
}

func (r *userRepository) leaderboard(ctx context.Context, path string, limit int) ([]models.LeaderboardEntry, error) {
	entries := make([]models.LeaderboardEntry, 0)
	if err := r.upstream.Get(ctx, limitPath(path, limit), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *userRepository) List(ctx context.Context, page Pagination) (arena.Page[models.User], error) {
	page = page.normalize(20)
	var result arena.Page[models.User]
	if err := r.upstream.Get(ctx, arena.PagePath("/users", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.User]{}, err
	}
	return result, nil
}

func (r *userRepository) GrantCoins(ctx context.Context, userID string, input models.GrantCoinsInput) (models.User, error) {
	var user models.User
	if err := r.upstream.Post(ctx, resourcePath("/users/%s/grant-coins", userID), input, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
