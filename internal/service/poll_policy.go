package service

import (
	"time"

	"github.com/noah-isme/gema-arena/internal/models"
)

// DefaultPollInterval is the re-poll cadence while a submission is in flight.
const DefaultPollInterval = 5 * time.Second

// PollPolicy decides whether a submission query must be fetched again.
// The decision is level-triggered: it only looks at the latest data.
type PollPolicy struct {
	Interval time.Duration
}

// NewPollPolicy returns a policy using interval, or the default when unset.
func NewPollPolicy(interval time.Duration) PollPolicy {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return PollPolicy{Interval: interval}
}

// Next returns the delay before the next fetch and true when at least one
// record is still in flight; otherwise polling stops.
func (p PollPolicy) Next(records []models.Submission) (time.Duration, bool) {
	for _, record := range records {
		if IsInFlight(record.Status) {
			return p.interval(), true
		}
	}
	return 0, false
}

func (p PollPolicy) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultPollInterval
	}
	return p.Interval
}
