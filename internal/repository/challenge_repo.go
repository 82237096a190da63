package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// ChallengeRepository reads and manages challenges upstream.
type ChallengeRepository interface {
	Current(ctx context.Context) (models.Challenge, error)
	Active(ctx context.Context) ([]models.Challenge, error)
	List(ctx context.Context, page Pagination) (arena.Page[models.Challenge], error)
	Get(ctx context.Context, id string) (models.Challenge, error)
	Create(ctx context.Context, input models.ChallengeInput) (models.Challenge, error)
	Update(ctx context.Context, id string, input models.ChallengeInput) (models.Challenge, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (models.Challenge, error)
	Deactivate(ctx context.Context, id string) (models.Challenge, error)
}

type challengeRepository struct {
	upstream Upstream
}

// NewChallengeRepository constructs the challenge repository.
func NewChallengeRepository(upstream Upstream) ChallengeRepository {
	return &challengeRepository{upstream: upstream}
}

func (r *challengeRepository) Current(ctx context.Context) (models.Challenge, error) {
	var payload arena.Flexible[models.Challenge]
	if err := r.upstream.Get(ctx, "/challenges/current", &payload); err != nil {
		return models.Challenge{}, err
	}
	return payload.Value, nil
}

// Active accepts both a bare array and a paginated listing.
func (r *challengeRepository) Active(ctx context.Context) ([]models.Challenge, error) {
	var payload arena.Flexible[[]models.Challenge]
	if err := r.upstream.Get(ctx, "/challenges/active", &payload); err != nil {
		return nil, err
	}
	if payload.Value == nil {
		return []models.Challenge{}, nil
	}
	return payload.Value, nil
}

func (r *challengeRepository) List(ctx context.Context, page Pagination) (arena.Page[models.Challenge], error) {
	page = page.normalize(20)
	var result arena.Page[models.Challenge]
	if err := r.upstream.Get(ctx, arena.PagePath("/challenges", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Challenge]{}, err
	}
	return result, nil
}

func (r *challengeRepository) Get(ctx context.Context, id string) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.upstream.Get(ctx, resourcePath("/challenges/%s", id), &challenge); err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) Create(ctx context.Context, input models.ChallengeInput) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.upstream.Post(ctx, "/challenges", input, &challenge); err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) Update(ctx context.Context, id string, input models.ChallengeInput) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.upstream.Patch(ctx, resourcePath("/challenges/%s", id), input, &challenge); err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) Delete(ctx context.Context, id string) error {
	return r.upstream.Delete(ctx, resourcePath("/challenges/%s", id), nil)
}

func (r *challengeRepository) Activate(ctx context.Context, id string) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.upstream.Post(ctx, resourcePath("/challenges/%s/activate", id), nil, &challenge); err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (r *challengeRepository) Deactivate(ctx context.Context, id string) (models.Challenge, error) {
	var challenge models.Challenge
	if err := r.upstream.Post(ctx, resourcePath("/challenges/%s/deactivate", id), nil, &challenge); err != nil {
		return models.Challenge{}, err
	}
	return challenge, nil
}
