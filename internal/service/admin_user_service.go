package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// AdminUserService handles user administration and explanation reviews.
type AdminUserService interface {
	Users(ctx context.Context, req dto.ListRequest) (ListResult[models.User], error)
	GrantCoins(ctx context.Context, userID string, payload dto.GrantCoinsRequest, actor ActivityActor) (models.User, error)
	PendingReviews(ctx context.Context, req dto.ListRequest) (ListResult[dto.SubmissionView], error)
	Review(ctx context.Context, submissionID string, payload dto.ReviewRequest, actor ActivityActor) (models.ReviewResult, error)
	PendingAnalysis(ctx context.Context, req dto.ListRequest) (ListResult[dto.SubmissionView], error)
	Analyze(ctx context.Context, submissionID string, actor ActivityActor) (dto.SubmissionView, error)
}

type adminUserService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	cache       *cache.Cache
	validator   *validator.Validate
	activity    ActivityRecorder
	plain       *bluemonday.Policy
	logger      zerolog.Logger
}

// NewAdminUserService constructs the service.
func NewAdminUserService(users repository.UserRepository, submissions repository.SubmissionRepository, c *cache.Cache, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminUserService {
	return &adminUserService{
		users:       users,
		submissions: submissions,
		cache:       c,
		validator:   validate,
		activity:    activity,
		plain:       bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "admin_user_service").Logger(),
	}
}

func (s *adminUserService) Users(ctx context.Context, req dto.ListRequest) (ListResult[models.User], error) {
	key := cache.Key("users", "page", formatPage(req))
	return cache.Remember(ctx, s.cache, key, []string{cache.TagUsers}, func(ctx context.Context) (ListResult[models.User], error) {
		page, err := s.users.List(ctx, pagination(req))
		if err != nil {
			return ListResult[models.User]{}, err
		}
		for i := range page.Data {
			page.Data[i] = page.Data[i].WithTierDefaults()
		}
		return listResult(page), nil
	})
}

func (s *adminUserService) GrantCoins(ctx context.Context, userID string, payload dto.GrantCoinsRequest, actor ActivityActor) (models.User, error) {
	payload.Reason = s.plain.Sanitize(payload.Reason)
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.User{}, err
	}

	input := models.GrantCoinsInput{
		Amount: payload.Amount,
		Reason: payload.Reason,
	}
	user, err := s.users.GrantCoins(ctx, userID, input)
	if err != nil {
		return models.User{}, err
	}

	invalidate(ctx, s.cache, s.logger,
		cache.TagUsers,
		cache.TagLeaderboard,
		cache.UserTag(cache.KindProfile, userID),
		cache.UserTag(cache.KindTransactions, userID),
	)
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "user.coins_granted",
		EntityType: "user",
		EntityID:   userID,
		Metadata:   map[string]interface{}{"amount": input.Amount, "reason": input.Reason},
	})
	s.logger.Info().Str("user_id", userID).Int("amount", input.Amount).Str("actor_id", actor.ID).Msg("coins granted")
	return user.WithTierDefaults(), nil
}

func (s *adminUserService) PendingReviews(ctx context.Context, req dto.ListRequest) (ListResult[dto.SubmissionView], error) {
	page, err := s.submissions.PendingReviews(ctx, pagination(req))
	if err != nil {
		return ListResult[dto.SubmissionView]{}, err
	}
	return ListResult[dto.SubmissionView]{
		Items:      submissionViews(page.Data),
		Pagination: dto.NewPaginationMeta(page.Meta),
	}, nil
}

// Review scores a submission's explanation and grants the optional bonuses.
// The author's cached views are dropped so the bonus shows up immediately.
func (s *adminUserService) Review(ctx context.Context, submissionID string, payload dto.ReviewRequest, actor ActivityActor) (models.ReviewResult, error) {
	payload.Feedback = s.plain.Sanitize(payload.Feedback)
	payload = payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return models.ReviewResult{}, err
	}

	input := payload.ToInput()

	result, err := s.submissions.Review(ctx, submissionID, input)
	if err != nil {
		return models.ReviewResult{}, err
	}

	tags := []string{cache.TagLeaderboard}
	if author := result.Submission.User.ID(); author != "" {
		tags = append(tags,
			cache.UserTag(cache.KindSubmissions, author),
			cache.UserTag(cache.KindProfile, author),
			cache.UserTag(cache.KindTransactions, author),
		)
	}
	invalidate(ctx, s.cache, s.logger, tags...)

	metadata := map[string]interface{}{"explanationScore": input.ExplanationScore}
	if input.BonusXP != nil {
		metadata["bonusXp"] = *input.BonusXP
	}
	if input.BonusCoins != nil {
		metadata["bonusCoins"] = *input.BonusCoins
	}
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.reviewed",
		EntityType: "submission",
		EntityID:   submissionID,
		Metadata:   metadata,
	})
	return result, nil
}

func (s *adminUserService) PendingAnalysis(ctx context.Context, req dto.ListRequest) (ListResult[dto.SubmissionView], error) {
	page, err := s.submissions.PendingAnalysis(ctx, pagination(req))
	if err != nil {
		return ListResult[dto.SubmissionView]{}, err
	}
	return ListResult[dto.SubmissionView]{
		Items:      submissionViews(page.Data),
		Pagination: dto.NewPaginationMeta(page.Meta),
	}, nil
}

// Analyze triggers the evaluation of a submission stuck in the queue. The
// author's views are dropped so the score shows up on their next read.
func (s *adminUserService) Analyze(ctx context.Context, submissionID string, actor ActivityActor) (dto.SubmissionView, error) {
	submission, err := s.submissions.Analyze(ctx, submissionID)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	tags := []string{cache.TagLeaderboard}
	if author := submission.User.ID(); author != "" {
		tags = append(tags,
			cache.UserTag(cache.KindSubmissions, author),
			cache.UserTag(cache.KindProfile, author),
			cache.UserTag(cache.KindTransactions, author),
		)
	}
	invalidate(ctx, s.cache, s.logger, tags...)

	metadata := map[string]interface{}{"status": string(submission.Status)}
	if submission.AIScore != nil {
		metadata["aiScore"] = *submission.AIScore
	}
	record(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.analyzed",
		EntityType: "submission",
		EntityID:   submissionID,
		Metadata:   metadata,
	})
	return dto.SubmissionView{Submission: submission, UIStatus: string(StatusOf(&submission))}, nil
}

func formatPage(req dto.ListRequest) string {
	page := pagination(req)
	return cache.Key(strconv.Itoa(page.Page), strconv.Itoa(page.Limit))
}
