package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
)

// AuthRepository talks to the upstream authentication endpoints.
type AuthRepository interface {
	Login(ctx context.Context, input models.LoginInput) (models.AuthResult, error)
	Register(ctx context.Context, input models.RegisterInput) (models.AuthResult, error)
	Me(ctx context.Context) (models.User, error)
}

type authRepository struct {
	upstream Upstream
}

// NewAuthRepository constructs the auth repository.
func NewAuthRepository(upstream Upstream) AuthRepository {
	return &authRepository{upstream: upstream}
}

func (r *authRepository) Login(ctx context.Context, input models.LoginInput) (models.AuthResult, error) {
	var result models.AuthResult
	if err := r.upstream.Post(ctx, "/auth/login", input, &result); err != nil {
		return models.AuthResult{}, err
	}
	return result, nil
}

func (r *authRepository) Register(ctx context.Context, input models.RegisterInput) (models.AuthResult, error) {
	var result models.AuthResult
	if err := r.upstream.Post(ctx, "/auth/register", input, &result); err != nil {
		return models.AuthResult{}, err
	}
	return result, nil
}

func (r *authRepository) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := r.upstream.Get(ctx, "/auth/me", &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}
