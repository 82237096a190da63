package repository

import (
	"context"

	"github.com/noah-isme/gema-arena/internal/models"
	"github.com/noah-isme/gema-arena/pkg/arena"
)

// maxSubmissionPages bounds ListAll when the upstream keeps reporting more pages.
const maxSubmissionPages = 50

// SubmissionRepository reads and creates submissions upstream.
type SubmissionRepository interface {
	Submit(ctx context.Context, input models.SubmitCodeInput) (models.SubmitCodeResult, error)
	List(ctx context.Context, page Pagination) (arena.Page[models.Submission], error)
	ListAll(ctx context.Context) ([]models.Submission, error)
	Get(ctx context.Context, id string) (models.Submission, error)
	Stats(ctx context.Context) (models.SubmissionStats, error)
	ListByChallenge(ctx context.Context, challengeID string, page Pagination) (arena.Page[models.Submission], error)
	PendingReviews(ctx context.Context, page Pagination) (arena.Page[models.Submission], error)
	Review(ctx context.Context, id string, input models.ReviewInput) (models.ReviewResult, error)
	PendingAnalysis(ctx context.Context, page Pagination) (arena.Page[models.Submission], error)
	Analyze(ctx context.Context, id string) (models.Submission, error)
}

type submissionRepository struct {
	upstream Upstream
}

// NewSubmissionRepository constructs the submission repository.
func NewSubmissionRepository(upstream Upstream) SubmissionRepository {
	return &submissionRepository{upstream: upstream}
}

func (r *submissionRepository) Submit(ctx context.Context, input models.SubmitCodeInput) (models.SubmitCodeResult, error) {
	var result models.SubmitCodeResult
	if err := r.upstream.Post(ctx, "/submissions", input, &result); err != nil {
		return models.SubmitCodeResult{}, err
	}
	return result, nil
}

func (r *submissionRepository) List(ctx context.Context, page Pagination) (arena.Page[models.Submission], error) {
	page = page.normalize(20)
	var result arena.Page[models.Submission]
	if err := r.upstream.Get(ctx, arena.PagePath("/submissions", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Submission]{}, err
	}
	return result, nil
}

// ListAll walks every page of the viewer's submissions.
func (r *submissionRepository) ListAll(ctx context.Context) ([]models.Submission, error) {
	all := make([]models.Submission, 0)
	for page := 1; page <= maxSubmissionPages; page++ {
		result, err := r.List(ctx, Pagination{Page: page, Limit: 100})
		if err != nil {
			return nil, err
		}
		all = append(all, result.Data...)
		if !result.HasNext() || len(result.Data) == 0 {
			break
		}
	}
	return all, nil
}

func (r *submissionRepository) Get(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.upstream.Get(ctx, resourcePath("/submissions/%s", id), &submission); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) Stats(ctx context.Context) (models.SubmissionStats, error) {
	var stats models.SubmissionStats
	if err := r.upstream.Get(ctx, "/submissions/stats", &stats); err != nil {
		return models.SubmissionStats{}, err
	}
	return stats, nil
}

func (r *submissionRepository) ListByChallenge(ctx context.Context, challengeID string, page Pagination) (arena.Page[models.Submission], error) {
	page = page.normalize(20)
	var result arena.Page[models.Submission]
	path := arena.PagePath(resourcePath("/submissions/challenge/%s", challengeID), page.Page, page.Limit)
	if err := r.upstream.Get(ctx, path, &result); err != nil {
		return arena.Page[models.Submission]{}, err
	}
	return result, nil
}

func (r *submissionRepository) PendingReviews(ctx context.Context, page Pagination) (arena.Page[models.Submission], error) {
	page = page.normalize(20)
	var result arena.Page[models.Submission]
	if err := r.upstream.Get(ctx, arena.PagePath("/submissions/pending-reviews", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Submission]{}, err
	}
	return result, nil
}

func (r *submissionRepository) Review(ctx context.Context, id string, input models.ReviewInput) (models.ReviewResult, error) {
	var result models.ReviewResult
	if err := r.upstream.Post(ctx, resourcePath("/submissions/%s/review", id), input, &result); err != nil {
		return models.ReviewResult{}, err
	}
	return result, nil
}

// PendingAnalysis lists submissions the evaluator has not scored yet.
func (r *submissionRepository) PendingAnalysis(ctx context.Context, page Pagination) (arena.Page[models.Submission], error) {
	page = page.normalize(20)
	var result arena.Page[models.Submission]
	if err := r.upstream.Get(ctx, arena.PagePath("/submissions/pending-analysis", page.Page, page.Limit), &result); err != nil {
		return arena.Page[models.Submission]{}, err
	}
	return result, nil
}

// Analyze asks the upstream to evaluate a submission now and returns the
// evaluated record.
func (r *submissionRepository) Analyze(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.upstream.Post(ctx, resourcePath("/submissions/%s/analyze", id), nil, &submission); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}
