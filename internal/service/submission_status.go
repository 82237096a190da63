package service

import (
	"github.com/noah-isme/gema-arena/internal/models"
)

// UIStatus is the four-state status shown next to a challenge.
type UIStatus string

// Derived statuses.
const (
	UIStatusPending   UIStatus = "pending"
	UIStatusOngoing   UIStatus = "ongoing"
	UIStatusCompleted UIStatus = "completed"
	UIStatusFailed    UIStatus = "failed"
)

// LatestByChallenge keeps, per challenge id, the submission with the latest
// evaluatedAt (falling back to createdAt). Ties go to the later element.
// Submissions without a challenge id are ignored.
func LatestByChallenge(submissions []models.Submission) map[string]models.Submission {
	latest := make(map[string]models.Submission, len(submissions))
	for _, candidate := range submissions {
		challengeID := candidate.Challenge.ID()
		if challengeID == "" {
			continue
		}

		existing, ok := latest[challengeID]
		if !ok || !candidate.RelevantAt().Before(existing.RelevantAt()) {
			latest[challengeID] = candidate
		}
	}
	return latest
}

// StatusOf maps the current submission of a challenge to its UI status.
func StatusOf(submission *models.Submission) UIStatus {
	if submission == nil {
		return UIStatusPending
	}
	switch submission.Status {
	case models.SubmissionStatusPassed, models.SubmissionStatusCompleted:
		return UIStatusCompleted
	case models.SubmissionStatusFailed:
		return UIStatusFailed
	default:
		return UIStatusOngoing
	}
}

// IsInFlight reports whether the backend is still working on a submission.
func IsInFlight(status models.SubmissionStatus) bool {
	return status == models.SubmissionStatusPending || status == models.SubmissionStatusEvaluating
}

// CountDuplicates returns how many challenges have more than one submission.
func CountDuplicates(submissions []models.Submission) int {
	seen := make(map[string]int, len(submissions))
	for _, submission := range submissions {
		if id := submission.Challenge.ID(); id != "" {
			seen[id]++
		}
	}
	duplicates := 0
	for _, count := range seen {
		if count > 1 {
			duplicates++
		}
	}
	return duplicates
}
