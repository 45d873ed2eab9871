// Package stats computes derived metrics over the application set. Compute
// is a pure function; the optional cache is invalidated explicitly on every
// committed transition, never refreshed by ambient background state.
package stats

import (
	"time"

	"loancore/internal/lifecycle"
	"loancore/pkg/domain"
)

// Summary is the read-side metric set.
//
// AvgProcessingValid distinguishes "no decided applications yet" from an
// average of zero days; callers must not coerce the invalid case to 0.
type Summary struct {
	Total              int     `json:"total_applications"`
	PendingReview      int     `json:"pending_review"`
	CompletionRate     float64 `json:"completion_rate"`
	AvgProcessingDays  float64 `json:"processing_time_avg_days"`
	AvgProcessingValid bool    `json:"processing_time_avg_valid"`
}

// Compute derives the summary from the current application set. Pure:
// no I/O, no mutation, deterministic for a given input.
func Compute(apps []*lifecycle.Application) Summary {
	var s Summary
	s.Total = len(apps)
	if s.Total == 0 {
		return s
	}

	var (
		done         int
		processing   time.Duration
		decidedCount int
	)
	for _, app := range apps {
		switch app.Status {
		case domain.StatusSubmitted, domain.StatusUnderReview:
			s.PendingReview++
		case domain.StatusDone:
			done++
		}
		if app.DecidedAt != nil && !app.SubmittedAt.IsZero() {
			processing += app.DecidedAt.Sub(app.SubmittedAt)
			decidedCount++
		}
	}

	s.CompletionRate = float64(done) / float64(s.Total)
	if decidedCount > 0 {
		s.AvgProcessingDays = processing.Hours() / 24 / float64(decidedCount)
		s.AvgProcessingValid = true
	}
	return s
}
