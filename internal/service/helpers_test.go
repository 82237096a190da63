package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func submissionFor(id, challengeID string, status models.SubmissionStatus, created time.Time, evaluated *time.Time) models.Submission {
	return models.Submission{
		ID:          id,
		Challenge:   models.ChallengeRefID(challengeID),
		Status:      status,
		CreatedAt:   created,
		EvaluatedAt: evaluated,
	}
}
