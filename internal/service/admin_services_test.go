package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
)

type stubAnnouncementRepo struct {
	items  []models.Announcement
	inputs []models.AnnouncementInput
}

func (s *stubAnnouncementRepo) Published(context.Context) ([]models.Announcement, error) {
	return s.items, nil
}

func (s *stubAnnouncementRepo) All(context.Context) ([]models.Announcement, error) {
	return s.items, nil
}

func (s *stubAnnouncementRepo) Get(_ context.Context, id string) (models.Announcement, error) {
	return models.Announcement{ID: id}, nil
}

func (s *stubAnnouncementRepo) Create(_ context.Context, input models.AnnouncementInput) (models.Announcement, error) {
	s.inputs = append(s.inputs, input)
	return models.Announcement{ID: "n1", Title: *input.Title, Content: *input.Content}, nil
}

func (s *stubAnnouncementRepo) Update(_ context.Context, id string, input models.AnnouncementInput) (models.Announcement, error) {
	s.inputs = append(s.inputs, input)
	return models.Announcement{ID: id, Title: *input.Title}, nil
}

func (s *stubAnnouncementRepo) Delete(context.Context, string) error { return nil }

func (s *stubAnnouncementRepo) Publish(_ context.Context, id string) (models.Announcement, error) {
	published := true
	return models.Announcement{ID: id, IsPublished: &published}, nil
}

func (s *stubAnnouncementRepo) Unpublish(_ context.Context, id string) (models.Announcement, error) {
	published := false
	return models.Announcement{ID: id, IsPublished: &published}, nil
}

func (s *stubAnnouncementRepo) TogglePin(_ context.Context, id string) (models.Announcement, error) {
	return models.Announcement{ID: id, IsPinned: true}, nil
}

var admin = ActivityActor{ID: "admin-1", Name: "Admin", Role: "ADMIN"}

func TestPublishedAnnouncementsArePinnedFirstAndSanitised(t *testing.T) {
	hidden := false
	repo := &stubAnnouncementRepo{items: []models.Announcement{
		{ID: "old", CreatedAt: timePtr(day(1))},
		{ID: "new", CreatedAt: timePtr(day(3)), Content: `<p>hi</p><script>alert(1)</script>`},
		{ID: "pinned", IsPinned: true, PublishedAt: timePtr(day(2))},
		{ID: "draft", IsPublished: &hidden, CreatedAt: timePtr(day(4))},
	}}
	svc := NewAnnouncementService(repo, nil, testLogger())

	items, err := svc.Published(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"pinned", "new", "old"}, ids)
	require.Equal(t, "<p>hi</p>", items[1].Content)
}

func TestAdminAnnouncementCreateSanitisesAndRecords(t *testing.T) {
	repo := &stubAnnouncementRepo{}
	activity := &stubActivity{}
	svc := NewAdminAnnouncementService(repo, nil, dto.NewValidator(), activity, testLogger())

	_, err := svc.Create(context.Background(), dto.AnnouncementRequest{Title: " ", Content: "x"}, admin)
	require.Error(t, err)
	require.Empty(t, repo.inputs)

	created, err := svc.Create(context.Background(), dto.AnnouncementRequest{
		Title:   " Week 3 ",
		Content: `<strong>Go</strong><img src=x onerror=alert(1)>`,
	}, admin)
	require.NoError(t, err)
	require.Equal(t, "Week 3", created.Title)
	require.NotContains(t, created.Content, "onerror")
	require.Len(t, activity.entries, 1)
	require.Equal(t, "announcement.created", activity.entries[0].Action)
}

func TestAdminAnnouncementRejectsContentThatSanitisesAway(t *testing.T) {
	repo := &stubAnnouncementRepo{}
	svc := NewAdminAnnouncementService(repo, nil, dto.NewValidator(), &stubActivity{}, testLogger())

	_, err := svc.Create(context.Background(), dto.AnnouncementRequest{
		Title:   "Week 4",
		Content: `<script>alert(1)</script>`,
	}, admin)
	require.True(t, isFieldError(err, "content"))

	_, err = svc.Update(context.Background(), "a1", dto.AnnouncementRequest{Title: "\t \n", Content: "ok"}, admin)
	require.True(t, isFieldError(err, "title"))
	require.Empty(t, repo.inputs)
}

func TestAdminFormsRejectBlankText(t *testing.T) {
	challenges := &stubChallengeRepo{}
	challengeSvc := NewAdminChallengeService(challenges, &stubSubmissionRepo{}, nil, dto.NewValidator(), nil, testLogger())
	_, err := challengeSvc.Create(context.Background(), dto.ChallengeRequest{
		Title:            "   ",
		Description:      "d",
		ProblemStatement: "  ",
		Difficulty:       1,
		TestCases:        []dto.TestCaseRequest{{Input: "  "}},
	}, admin)
	require.True(t, isFieldError(err, "title"))
	require.True(t, isFieldError(err, "problemStatement"))
	require.True(t, isFieldError(err, "testCases[0].input"))
	require.Empty(t, challenges.created)

	shop := &stubShopRepo{}
	shopSvc := NewAdminShopService(shop, nil, dto.NewValidator(), &stubActivity{}, testLogger())
	_, err = shopSvc.Create(context.Background(), dto.ShopItemRequest{Name: " ", Description: "d", CoinPrice: 1, MinLevel: 1}, admin)
	require.True(t, isFieldError(err, "name"))

	users := &stubUserRepo{}
	userSvc := NewAdminUserService(users, &stubSubmissionRepo{}, nil, dto.NewValidator(), &stubActivity{}, testLogger())
	_, err = userSvc.GrantCoins(context.Background(), "u1", dto.GrantCoinsRequest{Amount: 5, Reason: "<b> </b>"}, admin)
	require.True(t, isFieldError(err, "reason"))
	require.Empty(t, users.granted)
}

func TestAdminChallengeChangesInvalidateStudentCache(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()
	repo := &stubChallengeRepo{active: []models.Challenge{challenge("a", 1, "")}}
	activity := &stubActivity{}
	svc := NewAdminChallengeService(repo, &stubSubmissionRepo{}, c, dto.NewValidator(), activity, testLogger())

	_, err := cache.Remember(ctx, c, cache.Key("challenges", "active"), []string{cache.TagChallenges}, repo.Active)
	require.NoError(t, err)
	require.EqualValues(t, 1, client.Exists(ctx, "test:cache:challenges:active").Val())

	_, err = svc.SetActive(ctx, "a", true, admin)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, repo.activated)
	require.EqualValues(t, 0, client.Exists(ctx, "test:cache:challenges:active").Val())
	require.Equal(t, "challenge.activated", activity.entries[0].Action)
}

func TestAdminChallengeCreateRequiresTestCases(t *testing.T) {
	repo := &stubChallengeRepo{}
	svc := NewAdminChallengeService(repo, &stubSubmissionRepo{}, nil, dto.NewValidator(), nil, testLogger())

	request := dto.ChallengeRequest{Title: "Sum", Description: "d", ProblemStatement: "p", Difficulty: 2}
	_, err := svc.Create(context.Background(), request, admin)
	require.Error(t, err)

	request.TestCases = []dto.TestCaseRequest{{Input: "1 2", ExpectedOutput: "3"}}
	created, err := svc.Create(context.Background(), request, admin)
	require.NoError(t, err)
	require.Equal(t, "Sum", created.Title)
	require.Len(t, repo.created, 1)
}

func TestAdminShopLookupNormalisesCode(t *testing.T) {
	shop := &stubShopRepo{}
	activity := &stubActivity{}
	svc := NewAdminShopService(shop, nil, dto.NewValidator(), activity, testLogger())

	_, err := svc.LookupCode(context.Background(), "  ")
	require.ErrorIs(t, err, ErrRedemptionCodeRequired)

	purchase, err := svc.LookupCode(context.Background(), " ab12cd ")
	require.NoError(t, err)
	require.Equal(t, "AB12CD", purchase.RedemptionCode)

	redeemed, err := svc.Redeem(context.Background(), "p1", admin)
	require.NoError(t, err)
	require.True(t, redeemed.IsRedeemed)
	require.Equal(t, "purchase.redeemed", activity.entries[0].Action)
}

func TestAdminGrantCoinsStripsMarkupFromReason(t *testing.T) {
	users := &stubUserRepo{profile: models.User{ID: "u1", Coins: 10}}
	svc := NewAdminUserService(users, &stubSubmissionRepo{}, nil, dto.NewValidator(), &stubActivity{}, testLogger())

	_, err := svc.GrantCoins(context.Background(), "u1", dto.GrantCoinsRequest{Amount: 0, Reason: "x"}, admin)
	require.Error(t, err)

	user, err := svc.GrantCoins(context.Background(), "u1", dto.GrantCoinsRequest{Amount: 5, Reason: "<b>Top</b> helper"}, admin)
	require.NoError(t, err)
	require.Equal(t, 15, user.Coins)
	require.Equal(t, "Top helper", users.granted[0].Reason)
}

func TestAdminReviewInvalidatesAuthorCaches(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()
	submissions := &stubSubmissionRepo{review: models.ReviewResult{Submission: models.Submission{ID: "s1", User: models.UserRefID("u7")}}}
	svc := NewAdminUserService(&stubUserRepo{}, submissions, c, dto.NewValidator(), &stubActivity{}, testLogger())

	profileKey := cache.Key("profile", "u7")
	_, err := cache.Remember(ctx, c, profileKey, []string{cache.UserTag(cache.KindProfile, "u7")}, func(context.Context) (models.User, error) {
		return models.User{ID: "u7"}, nil
	})
	require.NoError(t, err)

	_, err = svc.Review(ctx, "s1", dto.ReviewRequest{ExplanationScore: 101}, admin)
	require.Error(t, err)

	_, err = svc.Review(ctx, "s1", dto.ReviewRequest{ExplanationScore: 80, BonusXP: 50, Feedback: "<i>clear</i>"}, admin)
	require.NoError(t, err)
	require.Equal(t, "clear", submissions.reviewed.Feedback)
	require.Nil(t, submissions.reviewed.BonusCoins)
	require.EqualValues(t, 50, *submissions.reviewed.BonusXP)
	require.EqualValues(t, 0, client.Exists(ctx, "test:cache:"+profileKey).Val())
}

func TestAdminAnalyzeInvalidatesAuthorAndRecords(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()
	score := 87.0
	submissions := &stubSubmissionRepo{
		all:      []models.Submission{{ID: "s1", Status: models.SubmissionStatusPending}},
		analysis: models.Submission{ID: "s1", User: models.UserRefID("u7"), Status: models.SubmissionStatusPassed, AIScore: &score},
	}
	activity := &stubActivity{}
	svc := NewAdminUserService(&stubUserRepo{}, submissions, c, dto.NewValidator(), activity, testLogger())

	pending, err := svc.PendingAnalysis(ctx, dto.ListRequest{})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	require.Equal(t, string(UIStatusOngoing), pending.Items[0].UIStatus)

	profileKey := cache.Key("profile", "u7")
	_, err = cache.Remember(ctx, c, profileKey, []string{cache.UserTag(cache.KindProfile, "u7")}, func(context.Context) (models.User, error) {
		return models.User{ID: "u7"}, nil
	})
	require.NoError(t, err)

	view, err := svc.Analyze(ctx, "s1", admin)
	require.NoError(t, err)
	require.Equal(t, string(UIStatusCompleted), view.UIStatus)
	require.Equal(t, []string{"s1"}, submissions.analyzed)
	require.EqualValues(t, 0, client.Exists(ctx, "test:cache:"+profileKey).Val())
	require.Equal(t, "submission.analyzed", activity.entries[0].Action)
	require.Equal(t, 87.0, activity.entries[0].Metadata["aiScore"])
}

func TestActivityMetadataMasksSecrets(t *testing.T) {
	svc := NewActivityService(nil, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		Actor:      ActivityActor{},
		Action:     " Challenge.Created ",
		EntityType: "Challenge",
		Metadata:   map[string]interface{}{"userEmail": "a@b.c", "accessToken": "t", "title": "Sum"},
	})
	require.NoError(t, err)
	require.Equal(t, "system", entry.ActorID)
	require.Equal(t, "challenge.created", entry.Action)
	require.Equal(t, "***", entry.Metadata["userEmail"])
	require.Equal(t, "***", entry.Metadata["accessToken"])
	require.Equal(t, "Sum", entry.Metadata["title"])

	_, err = svc.List(context.Background(), dto.AdminActivityListRequest{})
	require.ErrorIs(t, err, ErrActivityLogDisabled)

	_, err = svc.Record(context.Background(), ActivityEntry{EntityType: "x"})
	require.Error(t, err)
}

func isFieldError(err error, field string) bool {
	for _, detail := range dto.ValidationDetails(err) {
		if detail.Field == field {
			return true
		}
	}
	return false
}
