package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/cache"
	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/internal/repository"
)

// submissionPoller starts the list and detail watches of a user and keeps
// the caches and the workspace in step with every poll result.
type submissionPoller struct {
	watcher     SubmissionWatcher
	submissions repository.SubmissionRepository
	registry    *WorkspaceRegistry
	cache       *cache.Cache
	logger      zerolog.Logger
}

func newSubmissionPoller(watcher SubmissionWatcher, submissions repository.SubmissionRepository, registry *WorkspaceRegistry, c *cache.Cache, logger zerolog.Logger) *submissionPoller {
	return &submissionPoller{
		watcher:     watcher,
		submissions: submissions,
		registry:    registry,
		cache:       c,
		logger:      logger.With().Str("component", "submission_poller").Logger(),
	}
}

// watchList polls every submission of userID. initial, when non-nil, is the
// data the first decision is taken on.
func (p *submissionPoller) watchList(ctx context.Context, userID string, initial []models.Submission) bool {
	if p.watcher == nil {
		return false
	}
	upstream := detach(ctx)

	return p.watcher.Watch(WatchRequest{
		Key:     ListWatchKey(userID),
		Initial: initial,
		Fetch: func(fetchCtx context.Context) ([]models.Submission, error) {
			return p.submissions.ListAll(carryUpstream(fetchCtx, upstream))
		},
		OnData: func(records []models.Submission) {
			p.refresh(userID, records)
		},
	})
}

// watchDetail polls one submission of userID.
func (p *submissionPoller) watchDetail(ctx context.Context, userID, submissionID string, initial *models.Submission) bool {
	if p.watcher == nil {
		return false
	}
	upstream := detach(ctx)

	var first []models.Submission
	if initial != nil {
		first = []models.Submission{*initial}
	}

	return p.watcher.Watch(WatchRequest{
		Key:     DetailWatchKey(userID, submissionID),
		Initial: first,
		Fetch: func(fetchCtx context.Context) ([]models.Submission, error) {
			submission, err := p.submissions.Get(carryUpstream(fetchCtx, upstream), submissionID)
			if err != nil {
				return nil, err
			}
			return []models.Submission{submission}, nil
		},
		OnData: func(records []models.Submission) {
			p.settle(userID, records)
		},
	})
}

// refresh pushes a fresh list into the user's workspace and drops stale caches.
func (p *submissionPoller) refresh(userID string, records []models.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	if p.registry != nil {
		if workspace, ok := p.registry.Lookup(userID); ok {
			if _, err := workspace.SyncSubmissions(ctx, records); err != nil {
				p.logger.Debug().Err(err).Str("user_id", userID).Msg("workspace sync skipped")
			}
		}
	}
	p.settle(userID, records)
}

// settle invalidates the caches a poll result may have outdated. Once nothing
// is in flight the evaluation may have awarded XP and coins as well.
func (p *submissionPoller) settle(userID string, records []models.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	tags := []string{cache.UserTag(cache.KindSubmissions, userID)}
	if _, again := NewPollPolicy(0).Next(records); !again {
		tags = append(tags,
			cache.UserTag(cache.KindProfile, userID),
			cache.UserTag(cache.KindTransactions, userID),
			cache.TagLeaderboard,
		)
	}
	invalidate(ctx, p.cache, p.logger, tags...)
}
