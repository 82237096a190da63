package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/dto"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/observability"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// WorkspaceView is the workspace payload returned to the student. When the
// arena has no open challenge Notice is set instead of Snapshot.
type WorkspaceView struct {
	Snapshot *WorkspaceSnapshot `json:"snapshot,omitempty"`
	Notice   string             `json:"notice,omitempty"`
	Polling  bool               `json:"polling"`
}

// SubmitOutcome is the result of a workspace submit.
type SubmitOutcome struct {
	Snapshot WorkspaceSnapshot       `json:"snapshot"`
	Result   models.SubmitCodeResult `json:"result"`
	Polling  bool                    `json:"polling"`
}

// CurrentChallengeView is the single-challenge view.
type CurrentChallengeView struct {
	Challenge *models.Challenge `json:"challenge,omitempty"`
	Notice    string            `json:"notice,omitempty"`
}

// ChallengeService drives the master-detail challenge workspace of a student.
type ChallengeService interface {
	Workspace(ctx context.Context, userID string) (WorkspaceView, error)
	Navigate(ctx context.Context, userID string, req dto.NavigateRequest) (WorkspaceSnapshot, error)
	EditDraft(ctx context.Context, userID string, req dto.DraftRequest) (WorkspaceSnapshot, error)
	Submit(ctx context.Context, userID string) (SubmitOutcome, error)
	Current(ctx context.Context) (CurrentChallengeView, error)
	Subscribe(userID string) (<-chan WorkspaceSnapshot, func())
}

type challengeService struct {
	challenges  repository.ChallengeRepository
	submissions repository.SubmissionRepository
	registry    *WorkspaceRegistry
	poller      *submissionPoller
	policy      PollPolicy
	cache       *cache.Cache
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewChallengeService constructs the challenge workspace service.
func NewChallengeService(
	challenges repository.ChallengeRepository,
	submissions repository.SubmissionRepository,
	registry *WorkspaceRegistry,
	watcher SubmissionWatcher,
	policy PollPolicy,
	c *cache.Cache,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChallengeService {
	return &challengeService{
		challenges:  challenges,
		submissions: submissions,
		registry:    registry,
		poller:      newSubmissionPoller(watcher, submissions, registry, c, logger),
		policy:      policy,
		cache:       c,
		validator:   validate,
		logger:      logger.With().Str("component", "challenge_service").Logger(),
	}
}

func (s *challengeService) Workspace(ctx context.Context, userID string) (WorkspaceView, error) {
	challenges, err := s.activeChallenges(ctx)
	if err != nil {
		if notice, ok := UnavailableNotice(err); ok {
			return WorkspaceView{Notice: notice}, nil
		}
		return WorkspaceView{}, err
	}

	submissions, err := s.allSubmissions(ctx, userID)
	if err != nil {
		return WorkspaceView{}, err
	}
	if duplicates := CountDuplicates(submissions); duplicates > 0 {
		s.logger.Warn().
			Str("user_id", userID).
			Int("duplicates", duplicates).
			Msg("multiple submissions for the same challenge, showing the latest")
	}

	workspace := s.registry.Get(userID)
	snapshot, err := workspace.Sync(ctx, challenges, submissions)
	if err != nil {
		return WorkspaceView{}, err
	}

	polling := false
	if _, again := s.policy.Next(submissions); again {
		s.poller.watchList(ctx, userID, submissions)
		polling = true
	}

	return WorkspaceView{Snapshot: &snapshot, Polling: polling}, nil
}

func (s *challengeService) Navigate(ctx context.Context, userID string, req dto.NavigateRequest) (WorkspaceSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return WorkspaceSnapshot{}, err
	}

	workspace := s.registry.Get(userID)
	switch req.Action {
	case dto.NavigatePrev:
		return workspace.Prev(ctx)
	case dto.NavigateNext:
		return workspace.Next(ctx)
	case dto.NavigateSkip:
		return workspace.SkipUnsolved(ctx)
	case dto.NavigateSelect:
		return workspace.Select(ctx, *req.Index)
	default:
		return WorkspaceSnapshot{}, fmt.Errorf("unknown navigation action %q", req.Action)
	}
}

func (s *challengeService) EditDraft(ctx context.Context, userID string, req dto.DraftRequest) (WorkspaceSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return WorkspaceSnapshot{}, err
	}

	workspace := s.registry.Get(userID)
	var (
		snapshot WorkspaceSnapshot
		err      error
		applied  bool
	)
	if req.Code != nil {
		if snapshot, err = workspace.EditCode(ctx, *req.Code); err != nil {
			return WorkspaceSnapshot{}, err
		}
		applied = true
	}
	if req.Explanation != nil {
		if snapshot, err = workspace.EditExplanation(ctx, *req.Explanation); err != nil {
			return WorkspaceSnapshot{}, err
		}
		applied = true
	}
	if req.Language != nil {
		if snapshot, err = workspace.SetLanguage(ctx, *req.Language); err != nil {
			return WorkspaceSnapshot{}, err
		}
		applied = true
	}
	if !applied {
		return workspace.Snapshot(ctx)
	}
	return snapshot, nil
}

// Submit sends the draft of the selected challenge when the submit gate is
// open. The workspace stays locked on the challenge until the server lists
// the new submission.
func (s *challengeService) Submit(ctx context.Context, userID string) (SubmitOutcome, error) {
	workspace := s.registry.Get(userID)

	payload, snapshot, err := workspace.BeginSubmit(ctx)
	if err != nil {
		if errors.Is(err, ErrSubmitNotAllowed) {
			observability.SubmitAttempts().WithLabelValues("blocked").Inc()
		}
		return SubmitOutcome{Snapshot: snapshot}, err
	}

	result, submitErr := s.submissions.Submit(ctx, payload)

	// The submitting flag must be cleared even when the request went away.
	completeCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	snapshot, err = workspace.CompleteSubmit(completeCtx, payload.ChallengeID, result, submitErr)
	if submitErr != nil {
		observability.SubmitAttempts().WithLabelValues("failed").Inc()
		s.logger.Warn().Err(submitErr).Str("user_id", userID).Str("challenge_id", payload.ChallengeID).Msg("submission rejected")
		return SubmitOutcome{Snapshot: snapshot}, submitErr
	}
	if err != nil {
		return SubmitOutcome{Result: result}, err
	}

	observability.SubmitAttempts().WithLabelValues("accepted").Inc()
	invalidate(ctx, s.cache, s.logger, cache.UserTag(cache.KindSubmissions, userID))

	status := result.Status
	if status == "" {
		status = models.SubmissionStatusPending
	}
	placeholder := models.Submission{
		ID:        result.ID,
		Challenge: models.ChallengeRefID(payload.ChallengeID),
		Status:    status,
	}
	listed, err := s.allSubmissions(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to list submissions after submit")
	}
	pending := withSubmission(listed, placeholder)
	polling := false
	if _, again := s.policy.Next(pending); again {
		s.poller.watchList(ctx, userID, pending)
		polling = true
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("challenge_id", payload.ChallengeID).
		Str("submission_id", result.ID).
		Msg("submission accepted")

	return SubmitOutcome{Snapshot: snapshot, Result: result, Polling: polling}, nil
}

func (s *challengeService) Current(ctx context.Context) (CurrentChallengeView, error) {
	challenge, err := cache.Remember(ctx, s.cache, cache.Key("challenges", "current"), []string{cache.TagChallenges}, s.challenges.Current)
	if err != nil {
		if notice, ok := UnavailableNotice(err); ok {
			return CurrentChallengeView{Notice: notice}, nil
		}
		return CurrentChallengeView{}, err
	}
	return CurrentChallengeView{Challenge: &challenge}, nil
}

func (s *challengeService) Subscribe(userID string) (<-chan WorkspaceSnapshot, func()) {
	return s.registry.Get(userID).Subscribe()
}

func (s *challengeService) activeChallenges(ctx context.Context) ([]models.Challenge, error) {
	return cache.Remember(ctx, s.cache, cache.Key("challenges", "active"), []string{cache.TagChallenges}, s.challenges.Active)
}

func (s *challengeService) allSubmissions(ctx context.Context, userID string) ([]models.Submission, error) {
	key := cache.Key("submissions", userID, "all")
	return cache.Remember(ctx, s.cache, key, []string{cache.UserTag(cache.KindSubmissions, userID)}, s.submissions.ListAll)
}

// withSubmission returns records with extra appended unless the server
// already lists it.
func withSubmission(records []models.Submission, extra models.Submission) []models.Submission {
	out := make([]models.Submission, 0, len(records)+1)
	out = append(out, records...)
	for _, record := range records {
		if record.ID == extra.ID {
			return out
		}
	}
	return append(out, extra)
}
