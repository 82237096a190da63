package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

type challengeFixture struct {
	service     ChallengeService
	challenges  *stubChallengeRepo
	submissions *stubSubmissionRepo
	registry    *WorkspaceRegistry
	watcher     SubmissionWatcher
}

func newChallengeFixture(t *testing.T, c *cache.Cache) challengeFixture {
	t.Helper()
	challenges := &stubChallengeRepo{active: []models.Challenge{challenge("a", 1, "print()"), challenge("b", 3, "")}}
	submissions := &stubSubmissionRepo{}
	registry := NewWorkspaceRegistry(WorkspaceOptions{ExplanationMinLength: 50, DefaultLanguage: "Bicol"}, time.Hour, testLogger())
	t.Cleanup(registry.Close)

	policy := NewPollPolicy(10 * time.Millisecond)
	watcher := NewSubmissionWatcher(policy, nil, "", nil, testLogger())
	t.Cleanup(watcher.Close)

	svc := NewChallengeService(challenges, submissions, registry, watcher, policy, c, dto.NewValidator(), testLogger())
	return challengeFixture{service: svc, challenges: challenges, submissions: submissions, registry: registry, watcher: watcher}
}

func TestChallengeWorkspaceUnavailableIsANotice(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	fixture.challenges.activeErr = &arena.APIError{StatusCode: 404, Message: "No active challenge this week"}

	view, err := fixture.service.Workspace(context.Background(), "u1")
	require.NoError(t, err)
	require.Nil(t, view.Snapshot)
	require.Equal(t, "No active challenge this week", view.Notice)

	current, err := fixture.service.Current(context.Background())
	require.NoError(t, err)
	require.Nil(t, current.Challenge)
	require.NotEmpty(t, current.Notice)
}

func TestChallengeWorkspaceOtherUpstreamErrorsFail(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	fixture.challenges.activeErr = &arena.APIError{StatusCode: 500, Message: "boom"}

	_, err := fixture.service.Workspace(context.Background(), "u1")
	require.Error(t, err)
	require.Equal(t, 500, arena.StatusCode(err))
}

func TestChallengeWorkspaceCachesActiveChallenges(t *testing.T) {
	c, _ := newTestCache(t)
	fixture := newChallengeFixture(t, c)

	view, err := fixture.service.Workspace(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, view.Snapshot)
	require.False(t, view.Polling)
	require.Equal(t, "print()", view.Snapshot.Draft.Code)

	_, err = fixture.service.Workspace(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, fixture.challenges.calls)
}

func TestChallengeNavigateValidatesAction(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	_, err := fixture.service.Workspace(context.Background(), "u1")
	require.NoError(t, err)

	_, err = fixture.service.Navigate(context.Background(), "u1", dto.NavigateRequest{Action: dto.NavigateSelect})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	snapshot, err := fixture.service.Navigate(context.Background(), "u1", dto.NavigateRequest{Action: dto.NavigateNext})
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.SelectedIndex)
	require.Equal(t, "b", snapshot.Selected.Challenge.ID)
}

func TestChallengeSubmitBlockedByGate(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	ctx := context.Background()
	_, err := fixture.service.Workspace(ctx, "u1")
	require.NoError(t, err)

	outcome, err := fixture.service.Submit(ctx, "u1")
	require.ErrorIs(t, err, ErrSubmitNotAllowed)
	require.Contains(t, outcome.Snapshot.Blockers, BlockerExplanationShort)
	require.Empty(t, fixture.submissions.submitted)
}

func TestChallengeSubmitPollsUntilEvaluated(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	ctx := context.Background()
	_, err := fixture.service.Workspace(ctx, "u1")
	require.NoError(t, err)

	code := "print('hi')"
	explanation := strings.Repeat("a", 60)
	_, err = fixture.service.EditDraft(ctx, "u1", dto.DraftRequest{Code: &code, Explanation: &explanation})
	require.NoError(t, err)

	fixture.submissions.result = models.SubmitCodeResult{ID: "s9", Status: models.SubmissionStatusPending}
	fixture.submissions.setAll([]models.Submission{
		submissionFor("s9", "a", models.SubmissionStatusEvaluating, day(2), nil),
	})

	outcome, err := fixture.service.Submit(ctx, "u1")
	require.NoError(t, err)
	require.True(t, outcome.Polling)
	require.True(t, outcome.Snapshot.ReadOnly)
	require.Len(t, fixture.submissions.submitted, 1)
	require.Equal(t, "Bicol", fixture.submissions.submitted[0].ExplanationLanguage)

	fixture.submissions.setAll([]models.Submission{
		submissionFor("s9", "a", models.SubmissionStatusPassed, day(2), timePtr(day(2))),
	})

	workspace := fixture.registry.Get("u1")
	require.Eventually(t, func() bool {
		snapshot, err := workspace.Snapshot(ctx)
		return err == nil && snapshot.Selected != nil && snapshot.Selected.Status == UIStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChallengeSubmitSeedsListWatchWithListedSubmissions(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	ctx := context.Background()
	_, err := fixture.service.Workspace(ctx, "u1")
	require.NoError(t, err)

	code := "print('hi')"
	explanation := strings.Repeat("a", 60)
	_, err = fixture.service.EditDraft(ctx, "u1", dto.DraftRequest{Code: &code, Explanation: &explanation})
	require.NoError(t, err)

	fixture.submissions.result = models.SubmitCodeResult{ID: "s9", Status: models.SubmissionStatusPending}
	fixture.submissions.setAll([]models.Submission{
		submissionFor("s1", "b", models.SubmissionStatusPassed, day(1), timePtr(day(1))),
	})

	events, unsubscribe := fixture.watcher.Subscribe(ListWatchKey("u1"))
	defer unsubscribe()

	outcome, err := fixture.service.Submit(ctx, "u1")
	require.NoError(t, err)
	require.True(t, outcome.Polling)

	select {
	case event := <-events:
		require.Equal(t, WatchEventUpdate, event.Type)
		require.Len(t, event.Submissions, 2)
		require.Equal(t, "s1", event.Submissions[0].ID)
		require.Equal(t, "s9", event.Submissions[1].ID)
		require.Equal(t, models.SubmissionStatusPending, event.Submissions[1].Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no watch update after submit")
	}
}

func TestWithSubmissionKeepsServerCopy(t *testing.T) {
	listed := []models.Submission{
		submissionFor("s1", "a", models.SubmissionStatusPassed, day(1), timePtr(day(1))),
		submissionFor("s9", "b", models.SubmissionStatusEvaluating, day(2), nil),
	}
	placeholder := models.Submission{ID: "s9", Status: models.SubmissionStatusPending}

	merged := withSubmission(listed, placeholder)
	require.Len(t, merged, 2)
	require.Equal(t, models.SubmissionStatusEvaluating, merged[1].Status)

	require.Equal(t, []models.Submission{placeholder}, withSubmission(nil, placeholder))
}

func TestChallengeSubmitFailureReopensGate(t *testing.T) {
	fixture := newChallengeFixture(t, nil)
	ctx := context.Background()
	_, err := fixture.service.Workspace(ctx, "u1")
	require.NoError(t, err)

	code := "x"
	explanation := strings.Repeat("b", 50)
	_, err = fixture.service.EditDraft(ctx, "u1", dto.DraftRequest{Code: &code, Explanation: &explanation})
	require.NoError(t, err)

	fixture.submissions.submitErr = &arena.APIError{StatusCode: 400, Message: "Already submitted"}
	outcome, err := fixture.service.Submit(ctx, "u1")
	require.Error(t, err)
	require.False(t, outcome.Snapshot.Submitting)
	require.True(t, outcome.Snapshot.CanSubmit)
}
