//go:build integration

package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"loancore/internal/lifecycle"
	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
	"loancore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *lifecycle.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = lifecycle.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "applications"))
}

func newTestApplication() *lifecycle.Application {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &lifecycle.Application{
		ID:              domain.NewApplicationID(),
		Number:          "LN-2026-" + domain.NewApplicationID().String()[:6],
		Status:          domain.StatusInProgress,
		RequestedAmount: 25000,
		LoanType:        "personal",
		ApplicantID:     domain.NewActorID(),
		SubmittedAt:     now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	app := newTestApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
	s.Equal(app.Number, got.Number)
	s.Equal(domain.StatusInProgress, got.Status)
	s.Nil(got.AssignedOfficer)
	s.Nil(got.DecidedAt)
	s.EqualValues(1, got.Version)
}

func (s *PostgresStoreSuite) TestGetUnknownID() {
	_, err := s.store.Get(context.Background(), domain.NewApplicationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateCAS() {
	ctx := context.Background()
	app := newTestApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	officer := domain.NewActorID()
	app.Status = domain.StatusUnderReview
	app.AssignedOfficer = &officer
	app.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.UpdateCAS(ctx, app, 1))
	s.EqualValues(2, app.Version)

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusUnderReview, got.Status)
	s.Require().NotNil(got.AssignedOfficer)
	s.Equal(officer, *got.AssignedOfficer)
}

func (s *PostgresStoreSuite) TestUpdateCASVersionMismatch() {
	ctx := context.Background()
	app := newTestApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	winner := app.Clone()
	winner.Status = domain.StatusSubmitted
	s.Require().NoError(s.store.UpdateCAS(ctx, winner, 1))

	loser := app.Clone()
	loser.Status = domain.StatusCancelled
	s.ErrorIs(s.store.UpdateCAS(ctx, loser, 1), sentinel.ErrVersionMismatch)

	// The winner's write is untouched.
	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, got.Status)
	s.EqualValues(2, got.Version)
}

func (s *PostgresStoreSuite) TestUpdateCASUnknownID() {
	ghost := newTestApplication()
	s.ErrorIs(s.store.UpdateCAS(context.Background(), ghost, 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDecisionFieldsRoundTrip() {
	ctx := context.Background()
	app := newTestApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	maker := domain.NewActorID()
	decidedAt := time.Now().UTC().Truncate(time.Microsecond)
	app.Status = domain.StatusApproved
	app.DecisionMaker = &maker
	app.DecidedAt = &decidedAt
	s.Require().NoError(s.store.UpdateCAS(ctx, app, 1))

	got, err := s.store.Get(ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.DecisionMaker)
	s.Equal(maker, *got.DecisionMaker)
	s.Require().NotNil(got.DecidedAt)
	s.True(got.DecidedAt.Equal(decidedAt))
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Create(ctx, newTestApplication()))
	}
	apps, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(apps, 3)
}
