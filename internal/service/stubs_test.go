package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

func newTestCache(t *testing.T) (*cache.Cache, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, "test", time.Minute, testLogger()), client
}

type stubChallengeRepo struct {
	active    []models.Challenge
	activeErr error
	current   models.Challenge
	created   []models.ChallengeInput
	activated []string
	calls     int
}

func (s *stubChallengeRepo) Current(context.Context) (models.Challenge, error) {
	return s.current, s.activeErr
}

func (s *stubChallengeRepo) Active(context.Context) ([]models.Challenge, error) {
	s.calls++
	return s.active, s.activeErr
}

func (s *stubChallengeRepo) List(context.Context, repository.Pagination) (arena.Page[models.Challenge], error) {
	return arena.Page[models.Challenge]{Data: s.active, Meta: arena.PageMeta{Page: 1, Limit: 20, Total: len(s.active), TotalPages: 1}}, nil
}

func (s *stubChallengeRepo) Get(_ context.Context, id string) (models.Challenge, error) {
	return models.Challenge{ID: id}, nil
}

func (s *stubChallengeRepo) Create(_ context.Context, input models.ChallengeInput) (models.Challenge, error) {
	s.created = append(s.created, input)
	return models.Challenge{ID: "new", Title: *input.Title}, nil
}

func (s *stubChallengeRepo) Update(_ context.Context, id string, input models.ChallengeInput) (models.Challenge, error) {
	return models.Challenge{ID: id, Title: *input.Title}, nil
}

func (s *stubChallengeRepo) Delete(context.Context, string) error { return nil }

func (s *stubChallengeRepo) Activate(_ context.Context, id string) (models.Challenge, error) {
	s.activated = append(s.activated, id)
	return models.Challenge{ID: id}, nil
}

func (s *stubChallengeRepo) Deactivate(_ context.Context, id string) (models.Challenge, error) {
	return models.Challenge{ID: id}, nil
}

type stubSubmissionRepo struct {
	mu        sync.Mutex
	all       []models.Submission
	submitted []models.SubmitCodeInput
	submitErr error
	result    models.SubmitCodeResult
	reviewed  models.ReviewInput
	review    models.ReviewResult
	analyzed  []string
	analysis  models.Submission
}

func (s *stubSubmissionRepo) setAll(records []models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = records
}

func (s *stubSubmissionRepo) Submit(_ context.Context, input models.SubmitCodeInput) (models.SubmitCodeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, input)
	return s.result, s.submitErr
}

func (s *stubSubmissionRepo) List(ctx context.Context, _ repository.Pagination) (arena.Page[models.Submission], error) {
	all, _ := s.ListAll(ctx)
	return arena.Page[models.Submission]{Data: all, Meta: arena.PageMeta{Page: 1, Limit: 20, Total: len(all), TotalPages: 1}}, nil
}

func (s *stubSubmissionRepo) ListAll(context.Context) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Submission(nil), s.all...), nil
}

func (s *stubSubmissionRepo) Get(_ context.Context, id string) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.all {
		if record.ID == id {
			return record, nil
		}
	}
	return models.Submission{}, &arena.APIError{StatusCode: 404, Message: "Submission not found"}
}

func (s *stubSubmissionRepo) Stats(context.Context) (models.SubmissionStats, error) {
	return models.SubmissionStats{}, nil
}

func (s *stubSubmissionRepo) ListByChallenge(ctx context.Context, _ string, page repository.Pagination) (arena.Page[models.Submission], error) {
	return s.List(ctx, page)
}

func (s *stubSubmissionRepo) PendingReviews(ctx context.Context, page repository.Pagination) (arena.Page[models.Submission], error) {
	return s.List(ctx, page)
}

func (s *stubSubmissionRepo) PendingAnalysis(ctx context.Context, page repository.Pagination) (arena.Page[models.Submission], error) {
	return s.List(ctx, page)
}

func (s *stubSubmissionRepo) Analyze(_ context.Context, id string) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzed = append(s.analyzed, id)
	return s.analysis, nil
}

func (s *stubSubmissionRepo) Review(_ context.Context, _ string, input models.ReviewInput) (models.ReviewResult, error) {
	s.reviewed = input
	return s.review, nil
}

type stubAuthRepo struct {
	me      models.User
	meErr   error
	meCalls int
	token   string
	result  models.AuthResult
	logins  []models.LoginInput
	signups []models.RegisterInput
}

func (s *stubAuthRepo) Login(_ context.Context, input models.LoginInput) (models.AuthResult, error) {
	s.logins = append(s.logins, input)
	return s.result, nil
}

func (s *stubAuthRepo) Register(_ context.Context, input models.RegisterInput) (models.AuthResult, error) {
	s.signups = append(s.signups, input)
	return s.result, nil
}

func (s *stubAuthRepo) Me(ctx context.Context) (models.User, error) {
	s.meCalls++
	s.token = arena.TokenFromContext(ctx)
	return s.me, s.meErr
}

type stubUserRepo struct {
	profile models.User
	granted []models.GrantCoinsInput
}

func (s *stubUserRepo) Profile(context.Context) (models.User, error) { return s.profile, nil }

func (s *stubUserRepo) Leaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	return []models.LeaderboardEntry{{Rank: 1, ID: "u1", Level: 25}}, nil
}

func (s *stubUserRepo) WeeklyLeaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

func (s *stubUserRepo) List(context.Context, repository.Pagination) (arena.Page[models.User], error) {
	return arena.Page[models.User]{Data: []models.User{s.profile}}, nil
}

func (s *stubUserRepo) GrantCoins(_ context.Context, userID string, input models.GrantCoinsInput) (models.User, error) {
	s.granted = append(s.granted, input)
	return models.User{ID: userID, Coins: s.profile.Coins + input.Amount}, nil
}

type stubActivity struct {
	entries []ActivityEntry
}

func (s *stubActivity) Record(_ context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.AdminActivityResponse{Action: entry.Action}, nil
}
