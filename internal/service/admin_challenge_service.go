package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// AdminChallengeService handles the admin challenge flows.
type AdminChallengeService interface {
	List(ctx context.Context, req dto.ListRequest) (ListResult[models.Challenge], error)
	Get(ctx context.Context, id string) (models.Challenge, error)
	Create(ctx context.Context, payload dto.ChallengeRequest, actor ActivityActor) (models.Challenge, error)
	Update(ctx context.Context, id string, payload dto.ChallengeRequest, actor ActivityActor) (models.Challenge, error)
	Delete(ctx context.Context, id string, actor ActivityActor) error
	SetActive(ctx context.Context, id string, active bool, actor ActivityActor) (models.Challenge, error)
	Submissions(ctx context.Context, challengeID string, req dto.ListRequest) (ListResult[dto.SubmissionView], error)
}

type adminChallengeService struct {
	challenges  repository.ChallengeRepository
	submissions repository.SubmissionRepository
	cache       *cache.Cache
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAdminChallengeService constructs the service.
func NewAdminChallengeService(challenges repository.ChallengeRepository, submissions repository.SubmissionRepository, c *cache.Cache, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminChallengeService {
	return &adminChallengeService{
		challenges:  challenges,
		submissions: submissions,
		cache:       c,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "admin_challenge_service").Logger(),
	}
}

func (s *adminChallengeService) List(ctx context.Context, req dto.ListRequest) (ListResult[models.Challenge], error) {
	page, err := s.challenges.List(ctx, pagination(req))
	if err != nil {
		return ListResult[models.Challenge]{}, err
	}
	return listResult(page), nil
}

func (s *adminChallengeService) Get(ctx context.Context, id string) (models.Challenge, error) {
	return s.challenges.Get(ctx, id)
}

func (s *adminChallengeService) Create(ctx context.Context, payload dto.ChallengeRequest, actor ActivityActor) (models.Challenge, error) {
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.Challenge{}, err
	}

	challenge, err := s.challenges.Create(ctx, payload.ToInput())
	if err != nil {
		return models.Challenge{}, err
	}

	s.changed(ctx, actor, "challenge.created", challenge.ID, map[string]interface{}{
		"title":      challenge.Title,
		"difficulty": challenge.Difficulty,
		"active":     payload.IsActive,
	})
	return challenge, nil
}

func (s *adminChallengeService) Update(ctx context.Context, id string, payload dto.ChallengeRequest, actor ActivityActor) (models.Challenge, error) {
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.Challenge{}, err
	}

	challenge, err := s.challenges.Update(ctx, id, payload.ToInput())
	if err != nil {
		return models.Challenge{}, err
	}

	s.changed(ctx, actor, "challenge.updated", id, map[string]interface{}{"title": challenge.Title})
	return challenge, nil
}

func (s *adminChallengeService) Delete(ctx context.Context, id string, actor ActivityActor) error {
	if err := s.challenges.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, actor, "challenge.deleted", id, nil)
	return nil
}

func (s *adminChallengeService) SetActive(ctx context.Context, id string, active bool, actor ActivityActor) (models.Challenge, error) {
	var (
		challenge models.Challenge
		err       error
		action    = "challenge.deactivated"
	)
	if active {
		challenge, err = s.challenges.Activate(ctx, id)
		action = "challenge.activated"
	} else {
		challenge, err = s.challenges.Deactivate(ctx, id)
	}
	if err != nil {
		return models.Challenge{}, err
	}

	s.changed(ctx, actor, action, id, nil)
	return challenge, nil
}

func (s *adminChallengeService) Submissions(ctx context.Context, challengeID string, req dto.ListRequest) (ListResult[dto.SubmissionView], error) {
	page, err := s.submissions.ListByChallenge(ctx, challengeID, pagination(req))
	if err != nil {
		return ListResult[dto.SubmissionView]{}, err
	}
	return ListResult[dto.SubmissionView]{
		Items:      submissionViews(page.Data),
		Pagination: dto.NewPaginationMeta(page.Meta),
	}, nil
}

func (s *adminChallengeService) changed(ctx context.Context, actor ActivityActor, action, id string, metadata map[string]interface{}) {
	invalidate(ctx, s.cache, s.logger, cache.TagChallenges)
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "challenge",
		EntityID:   id,
		Metadata:   metadata,
	})
	s.logger.Info().Str("challenge_id", id).Str("action", action).Str("actor_id", actor.ID).Msg("challenge changed")
}
