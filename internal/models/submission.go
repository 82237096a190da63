package models

import "time"

// SubmissionStatus is the lifecycle status reported by the arena backend.
type SubmissionStatus string

// Backend submission statuses.
const (
	SubmissionStatusPending    SubmissionStatus = "PENDING"
	SubmissionStatusEvaluating SubmissionStatus = "EVALUATING"
	SubmissionStatusPassed     SubmissionStatus = "PASSED"
	SubmissionStatusCompleted  SubmissionStatus = "COMPLETED"
	SubmissionStatusFailed     SubmissionStatus = "FAILED"
	SubmissionStatusError      SubmissionStatus = "ERROR"
)

// AIAnalysis is the per-dimension score breakdown of an AI evaluation.
type AIAnalysis struct {
	Correctness int `json:"correctness"`
	CodeQuality int `json:"codeQuality"`
	Efficiency  int `json:"efficiency"`
	Style       int `json:"style"`
}

// Submission is a student's code and explanation for one challenge.
type Submission struct {
	ID                   string           `json:"id"`
	User                 UserRef          `json:"userId"`
	Challenge            ChallengeRef     `json:"challengeId"`
	Code                 string           `json:"code"`
	Explanation          string           `json:"explanation,omitempty"`
	ExplanationLanguage  string           `json:"explanationLanguage,omitempty"`
	Status               SubmissionStatus `json:"status"`
	AIScore              *float64         `json:"aiScore,omitempty"`
	AIFeedback           string           `json:"aiFeedback,omitempty"`
	AIAnalysis           *AIAnalysis      `json:"aiAnalysis,omitempty"`
	AISuggestions        []string         `json:"aiSuggestions,omitempty"`
	XPEarned             *int             `json:"xpEarned,omitempty"`
	CoinsEarned          *int             `json:"coinsEarned,omitempty"`
	IsReviewed           bool             `json:"isReviewed,omitempty"`
	ReviewedAt           *time.Time       `json:"reviewedAt,omitempty"`
	ExplanationScore     *int             `json:"explanationScore,omitempty"`
	ReviewerFeedback     string           `json:"reviewerFeedback,omitempty"`
	BonusXPFromReview    *int             `json:"bonusXpFromReview,omitempty"`
	BonusCoinsFromReview *int             `json:"bonusCoinsFromReview,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	EvaluatedAt          *time.Time       `json:"evaluatedAt,omitempty"`
}

// RelevantAt is the timestamp used to order submissions for the same
// challenge: evaluatedAt when known, otherwise createdAt.
func (s Submission) RelevantAt() time.Time {
	if s.EvaluatedAt != nil && !s.EvaluatedAt.IsZero() {
		return *s.EvaluatedAt
	}
	return s.CreatedAt
}

// SubmissionStats aggregates a student's submission history.
type SubmissionStats struct {
	Total            int     `json:"total"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	Pending          int     `json:"pending"`
	TotalXPEarned    int     `json:"totalXpEarned"`
	TotalCoinsEarned int     `json:"totalCoinsEarned"`
	AverageScore     float64 `json:"averageScore"`
}

// SubmitCodeInput is the payload of POST /submissions.
type SubmitCodeInput struct {
	ChallengeID         string `json:"challengeId"`
	Code                string `json:"code"`
	Explanation         string `json:"explanation"`
	ExplanationLanguage string `json:"explanationLanguage"`
}

// SubmitCodeResult is the acknowledgement of POST /submissions.
type SubmitCodeResult struct {
	ID      string           `json:"id"`
	Status  SubmissionStatus `json:"status"`
	Message string           `json:"message"`
}

// ReviewInput is the admin bonus review payload.
type ReviewInput struct {
	ExplanationScore int    `json:"explanationScore"`
	BonusXP          *int   `json:"bonusXp,omitempty"`
	BonusCoins       *int   `json:"bonusCoins,omitempty"`
	Feedback         string `json:"feedback,omitempty"`
}

// ReviewResult is returned by the review endpoint.
type ReviewResult struct {
	Message    string     `json:"message"`
	Submission Submission `json:"submission"`
}
