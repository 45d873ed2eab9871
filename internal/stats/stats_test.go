package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loancore/internal/lifecycle"
	"loancore/pkg/domain"
)

func app(status domain.Status, submitted time.Time, decided *time.Time) *lifecycle.Application {
	return &lifecycle.Application{
		ID:          domain.NewApplicationID(),
		Status:      status,
		SubmittedAt: submitted,
		DecidedAt:   decided,
	}
}

func TestCompute(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decidedAfter := func(d time.Duration) *time.Time {
		t := base.Add(d)
		return &t
	}

	t.Run("empty set yields zeros with invalid average", func(t *testing.T) {
		s := Compute(nil)
		assert.Zero(t, s.Total)
		assert.Zero(t, s.PendingReview)
		assert.Zero(t, s.CompletionRate)
		assert.Zero(t, s.AvgProcessingDays)
		assert.False(t, s.AvgProcessingValid)
	})

	t.Run("pending counts submitted and under_review only", func(t *testing.T) {
		s := Compute([]*lifecycle.Application{
			app(domain.StatusInProgress, base, nil),
			app(domain.StatusSubmitted, base, nil),
			app(domain.StatusUnderReview, base, nil),
			app(domain.StatusApproved, base, decidedAfter(24*time.Hour)),
			app(domain.StatusCancelled, base, nil),
		})
		assert.Equal(t, 5, s.Total)
		assert.Equal(t, 2, s.PendingReview)
	})

	t.Run("completion rate is done over total", func(t *testing.T) {
		s := Compute([]*lifecycle.Application{
			app(domain.StatusDone, base, decidedAfter(48*time.Hour)),
			app(domain.StatusDone, base, decidedAfter(24*time.Hour)),
			app(domain.StatusRejected, base, decidedAfter(24*time.Hour)),
			app(domain.StatusInProgress, base, nil),
		})
		assert.InDelta(t, 0.5, s.CompletionRate, 1e-9)
	})

	t.Run("average spans submission to decision for decided apps only", func(t *testing.T) {
		s := Compute([]*lifecycle.Application{
			app(domain.StatusDone, base, decidedAfter(48*time.Hour)),     // 2 days
			app(domain.StatusRejected, base, decidedAfter(96*time.Hour)), // 4 days
			app(domain.StatusSubmitted, base, nil),                       // undecided, excluded
		})
		assert.True(t, s.AvgProcessingValid)
		assert.InDelta(t, 3.0, s.AvgProcessingDays, 1e-9)
	})

	t.Run("no decided applications keeps average invalid not zero", func(t *testing.T) {
		s := Compute([]*lifecycle.Application{
			app(domain.StatusSubmitted, base, nil),
			app(domain.StatusUnderReview, base, nil),
		})
		assert.False(t, s.AvgProcessingValid)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		apps := []*lifecycle.Application{
			app(domain.StatusDone, base, decidedAfter(30*time.Hour)),
			app(domain.StatusSubmitted, base, nil),
		}
		assert.Equal(t, Compute(apps), Compute(apps))
	})
}
