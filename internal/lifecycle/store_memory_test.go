package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
)

// =============================================================================
// In-Memory Application Store Test Suite
// =============================================================================

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *MemoryStoreSuite) newApp() *Application {
	now := time.Now()
	return &Application{
		ID:          domain.NewApplicationID(),
		Number:      "LN-2026-000001",
		Status:      domain.StatusInProgress,
		ApplicantID: domain.NewActorID(),
		SubmittedAt: now,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	app := s.newApp()
	s.Require().NoError(s.store.Create(s.ctx, app))

	got, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
	s.EqualValues(1, got.Version)

	s.Run("duplicate create fails", func() {
		s.ErrorIs(s.store.Create(s.ctx, app), sentinel.ErrInvalidState)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(s.ctx, domain.NewApplicationID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reads are isolated from caller mutation", func() {
		got.Status = domain.StatusDone
		again, err := s.store.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(domain.StatusInProgress, again.Status)
	})
}

func (s *MemoryStoreSuite) TestUpdateCAS() {
	app := s.newApp()
	s.Require().NoError(s.store.Create(s.ctx, app))

	s.Run("matching version commits and bumps", func() {
		app.Status = domain.StatusSubmitted
		s.Require().NoError(s.store.UpdateCAS(s.ctx, app, 1))
		s.EqualValues(2, app.Version)

		got, err := s.store.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(domain.StatusSubmitted, got.Status)
		s.EqualValues(2, got.Version)
	})

	s.Run("stale version is rejected without effect", func() {
		stale := app.Clone()
		stale.Status = domain.StatusCancelled
		err := s.store.UpdateCAS(s.ctx, stale, 1)
		s.ErrorIs(err, sentinel.ErrVersionMismatch)

		got, err := s.store.Get(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(domain.StatusSubmitted, got.Status)
	})

	s.Run("unknown id is not found", func() {
		ghost := s.newApp()
		s.ErrorIs(s.store.UpdateCAS(s.ctx, ghost, 1), sentinel.ErrNotFound)
	})
}

// Two writers race from the same observed version; the version guard must
// admit exactly one.
func (s *MemoryStoreSuite) TestUpdateCASRace() {
	app := s.newApp()
	s.Require().NoError(s.store.Create(s.ctx, app))

	const writers = 2
	var (
		start    sync.WaitGroup
		release  = make(chan struct{})
		outcomes = make(chan error, writers)
	)
	start.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			observed, err := s.store.Get(s.ctx, app.ID)
			if err != nil {
				start.Done()
				outcomes <- err
				return
			}
			observed.Status = domain.StatusSubmitted
			start.Done()
			<-release
			outcomes <- s.store.UpdateCAS(s.ctx, observed, observed.Version)
		}()
	}
	start.Wait()
	close(release)

	var wins, conflicts int
	for i := 0; i < writers; i++ {
		switch err := <-outcomes; {
		case err == nil:
			wins++
		default:
			s.ErrorIs(err, sentinel.ErrVersionMismatch)
			conflicts++
		}
	}
	s.Equal(1, wins)
	s.Equal(1, conflicts)

	got, err := s.store.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.EqualValues(2, got.Version)
}

func (s *MemoryStoreSuite) TestList() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Create(s.ctx, s.newApp()))
	}
	apps, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(apps, 3)
}
