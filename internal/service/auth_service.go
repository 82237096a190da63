package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
	"github.com/noah-isme/gema-arena/internal/session"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// ErrMissingAccessToken is returned when the upstream issued no token.
var ErrMissingAccessToken = errors.New("upstream returned no access token")

// Principal is the authenticated viewer of a request.
type Principal struct {
	UserID string
	Name   string
	Role   models.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return strings.EqualFold(string(p.Role), string(models.RoleAdmin))
}

func principalOf(user models.User) Principal {
	return Principal{UserID: user.ID, Name: user.Name, Role: user.Role}
}

// AuthService handles login, registration and the session state bound to tokens.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (models.AuthResult, error)
	Register(ctx context.Context, req dto.RegisterRequest) (models.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, userID string) (models.User, error)
	Resolve(ctx context.Context, token string) (Principal, error)
	Invalidate(ctx context.Context, token string)
}

type authService struct {
	repo      repository.AuthRepository
	store     *session.Store
	cache     *cache.Cache
	registry  *WorkspaceRegistry
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(repo repository.AuthRepository, store *session.Store, c *cache.Cache, registry *WorkspaceRegistry, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		repo:      repo,
		store:     store,
		cache:     c,
		registry:  registry,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (models.AuthResult, error) {
	req = req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return models.AuthResult{}, err
	}

	result, err := s.repo.Login(ctx, req.ToInput())
	if err != nil {
		return models.AuthResult{}, err
	}
	return s.establish(ctx, result)
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (models.AuthResult, error) {
	req = req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return models.AuthResult{}, err
	}

	result, err := s.repo.Register(ctx, req.ToInput())
	if err != nil {
		return models.AuthResult{}, err
	}
	return s.establish(ctx, result)
}

func (s *authService) establish(ctx context.Context, result models.AuthResult) (models.AuthResult, error) {
	if strings.TrimSpace(result.AccessToken) == "" {
		return models.AuthResult{}, ErrMissingAccessToken
	}
	result.User = result.User.WithTierDefaults()

	if s.store != nil && result.User.ID != "" {
		if err := s.store.Bind(ctx, result.AccessToken, result.User); err != nil {
			s.logger.Warn().Err(err).Str("user_id", result.User.ID).Msg("failed to bind session state")
		}
	}
	invalidate(ctx, s.cache, s.logger, cache.UserTag(cache.KindProfile, result.User.ID))

	s.logger.Info().Str("user_id", result.User.ID).Str("role", string(result.User.Role)).Msg("session established")
	return result, nil
}

// Logout forgets the session state of token and the user's workspace.
// Layout preferences are kept.
func (s *authService) Logout(ctx context.Context, token string) error {
	if s.store == nil || strings.TrimSpace(token) == "" {
		return nil
	}

	userID, err := s.store.UserID(ctx, token)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		s.logger.Warn().Err(err).Msg("failed to resolve session on logout")
	}

	if err := s.store.Drop(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if userID != "" {
		if s.registry != nil {
			s.registry.Drop(userID)
		}
		invalidate(ctx, s.cache, s.logger,
			cache.UserTag(cache.KindProfile, userID),
			cache.UserTag(cache.KindSubmissions, userID),
			cache.UserTag(cache.KindTransactions, userID),
			cache.UserTag(cache.KindPurchases, userID),
		)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (models.User, error) {
	key := cache.Key("me", userID)
	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindProfile, userID)}, func(ctx context.Context) (models.User, error) {
		user, err := s.repo.Me(ctx)
		if err != nil {
			return models.User{}, err
		}
		user = user.WithTierDefaults()
		if s.store != nil && user.ID != "" {
			if err := s.store.SetProfile(ctx, user); err != nil {
				s.logger.Warn().Err(err).Msg("failed to refresh session profile")
			}
		}
		return user, nil
	})
}

// Resolve maps a bearer token to its principal, asking the upstream when no
// session state is bound to the token yet.
func (s *authService) Resolve(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, session.ErrNoSession
	}

	bind := s.store != nil
	if s.store != nil {
		userID, err := s.store.UserID(ctx, token)
		switch {
		case err == nil:
			profile, profileErr := s.store.Profile(ctx, userID)
			if profileErr == nil {
				return principalOf(profile), nil
			}
			if !errors.Is(profileErr, session.ErrNoSession) {
				s.logger.Warn().Err(profileErr).Str("user_id", userID).Msg("failed to read session profile")
			}
		case errors.Is(err, session.ErrNoSession):
		default:
			s.logger.Warn().Err(err).Msg("session store unavailable, asking upstream")
			bind = false
		}
	}

	user, err := s.repo.Me(arena.WithToken(ctx, token))
	if err != nil {
		return Principal{}, err
	}
	user = user.WithTierDefaults()

	if bind && user.ID != "" {
		if err := s.store.Bind(ctx, token, user); err != nil {
			s.logger.Warn().Err(err).Msg("failed to bind session state")
		}
	}
	return principalOf(user), nil
}

// Invalidate drops the state of a token the upstream rejected.
func (s *authService) Invalidate(ctx context.Context, token string) {
	if s.store == nil {
		return
	}
	if err := s.store.Drop(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop rejected session")
		return
	}
	s.logger.Info().Msg("session dropped after upstream rejection")
}
