package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// SubmissionService serves the viewer's submission history and keeps in-flight
// submissions polled.
type SubmissionService interface {
	List(ctx context.Context, userID string, req dto.ListRequest) (dto.SubmissionListResponse, error)
	Get(ctx context.Context, userID, submissionID string) (dto.SubmissionDetailResponse, error)
	Stats(ctx context.Context, userID string) (models.SubmissionStats, error)
	WatchList(ctx context.Context, userID string) (string, error)
	WatchDetail(ctx context.Context, userID, submissionID string) (string, error)
	Subscribe(key string) (<-chan WatchEvent, func())
}

type submissionService struct {
	submissions repository.SubmissionRepository
	watcher     SubmissionWatcher
	poller      *submissionPoller
	policy      PollPolicy
	cache       *cache.Cache
	logger      zerolog.Logger
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(submissions repository.SubmissionRepository, registry *WorkspaceRegistry, watcher SubmissionWatcher, policy PollPolicy, c *cache.Cache, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissions,
		watcher:     watcher,
		poller:      newSubmissionPoller(watcher, submissions, registry, c, logger),
		policy:      policy,
		cache:       c,
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// List returns one page of submissions. While the page holds an in-flight
// submission the user's list watch keeps polling.
func (s *submissionService) List(ctx context.Context, userID string, req dto.ListRequest) (dto.SubmissionListResponse, error) {
	page := pagination(req)
	key := cache.Key("submissions", userID, "page", strconv.Itoa(page.Page), strconv.Itoa(page.Limit))

	result, err := cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindSubmissions, userID)}, func(ctx context.Context) (dto.SubmissionListResponse, error) {
		result, err := s.submissions.List(ctx, page)
		if err != nil {
			return dto.SubmissionListResponse{}, err
		}
		return dto.SubmissionListResponse{
			Items:      submissionViews(result.Data),
			Pagination: dto.NewPaginationMeta(result.Meta),
		}, nil
	})
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	records := make([]models.Submission, 0, len(result.Items))
	for _, item := range result.Items {
		records = append(records, item.Submission)
	}
	result.Polling, result.NextPollMs = false, 0
	if delay, again := s.policy.Next(records); again {
		s.poller.watchList(ctx, userID, nil)
		result.Polling = true
		result.NextPollMs = delay.Milliseconds()
	}
	return result, nil
}

// Get returns one submission and starts its detail watch while it is in flight.
func (s *submissionService) Get(ctx context.Context, userID, submissionID string) (dto.SubmissionDetailResponse, error) {
	key := cache.Key("submissions", userID, "detail", submissionID)
	submission, err := cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindSubmissions, userID)}, func(ctx context.Context) (models.Submission, error) {
		return s.submissions.Get(ctx, submissionID)
	})
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	response := dto.SubmissionDetailResponse{Submission: submissionView(submission)}
	if delay, again := s.policy.Next([]models.Submission{submission}); again {
		s.poller.watchDetail(ctx, userID, submissionID, &submission)
		response.Polling = true
		response.NextPollMs = delay.Milliseconds()
	}
	return response, nil
}

func (s *submissionService) Stats(ctx context.Context, userID string) (models.SubmissionStats, error) {
	key := cache.Key("submissions", userID, "stats")
	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindSubmissions, userID)}, s.submissions.Stats)
}

// WatchList makes sure the list watch of userID runs when anything is in
// flight and returns the key to subscribe to.
func (s *submissionService) WatchList(ctx context.Context, userID string) (string, error) {
	key := ListWatchKey(userID)
	if s.watcher.Active(key) {
		return key, nil
	}
	records, err := s.submissions.ListAll(ctx)
	if err != nil {
		return "", err
	}
	s.poller.watchList(ctx, userID, records)
	return key, nil
}

// WatchDetail makes sure the detail watch of a submission runs while it is
// in flight and returns the key to subscribe to.
func (s *submissionService) WatchDetail(ctx context.Context, userID, submissionID string) (string, error) {
	key := DetailWatchKey(userID, submissionID)
	if s.watcher.Active(key) {
		return key, nil
	}
	submission, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return "", err
	}
	s.poller.watchDetail(ctx, userID, submissionID, &submission)
	return key, nil
}

func (s *submissionService) Subscribe(key string) (<-chan WatchEvent, func()) {
	return s.watcher.Subscribe(key)
}

func submissionView(submission models.Submission) dto.SubmissionView {
	return dto.SubmissionView{Submission: submission, UIStatus: string(StatusOf(&submission))}
}

func submissionViews(submissions []models.Submission) []dto.SubmissionView {
	views := make([]dto.SubmissionView, 0, len(submissions))
	for _, submission := range submissions {
		views = append(views, submissionView(submission))
	}
	return views
}
