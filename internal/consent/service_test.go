package consent

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"loancore/internal/audit"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	txpkg "loancore/pkg/platform/tx"
	"loancore/pkg/requestcontext"
)

// =============================================================================
// Consent Service Test Suite
// =============================================================================

type ConsentServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	ledger  *audit.Service
	service *Service
	actor   domain.Actor
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.ledger = audit.NewService(audit.NewInMemoryStore(), logger)
	s.actor = domain.Actor{ID: domain.NewActorID(), Role: domain.RoleCustomer}

	var err error
	s.service, err = New(s.store, s.ledger, txpkg.NewMemoryRunner(0), logger, nil)
	s.Require().NoError(err)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	s.ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", "Mozilla/5.0")
}

// =============================================================================
// Capture Tests
// =============================================================================

func (s *ConsentServiceSuite) TestCapture() {
	s.Run("persists record with verifiable fingerprint", func() {
		rec, err := s.service.Capture(s.ctx, s.actor, TypeCreditCheck, map[string]any{
			"bureau":  "experian",
			"version": "1.2",
		})
		s.Require().NoError(err)
		s.Equal(s.actor.ID, rec.ActorID)
		s.Equal("198.51.100.7", rec.IPAddress)
		s.True(VerifyRecord(rec))

		stored, err := s.store.Get(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.Fingerprint, stored.Fingerprint)
	})

	s.Run("sanitizes payload before fingerprinting", func() {
		rec, err := s.service.Capture(s.ctx, s.actor, TypeDataProcessing, map[string]any{
			"purpose": "underwriting",
			"ssn":     "078-05-1120",
		})
		s.Require().NoError(err)
		s.Equal("[REDACTED]", rec.Payload["ssn"])
		// The digest is over the stored (sanitized) payload, so the record
		// verifies even though the raw input was redacted.
		s.True(VerifyRecord(rec))
	})

	s.Run("writes one audit entry per capture", func() {
		rec, err := s.service.Capture(s.ctx, s.actor, TypeMarketing, map[string]any{"channel": "email"})
		s.Require().NoError(err)

		entries, err := s.ledger.Query(s.ctx, audit.Filter{
			ResourceType: audit.ResourceConsent,
			ResourceID:   rec.ID.String(),
		})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionConsentCapture, entries[0].Action)
		s.Equal(rec.Fingerprint, entries[0].Details["fingerprint"])
	})

	s.Run("rejects system actor", func() {
		_, err := s.service.Capture(s.ctx, domain.System(), TypeMarketing, map[string]any{"x": "y"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects empty payload", func() {
		_, err := s.service.Capture(s.ctx, s.actor, TypeMarketing, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Verify Tests
// =============================================================================

func (s *ConsentServiceSuite) TestVerify() {
	s.Run("round trip verifies", func() {
		rec, err := s.service.Capture(s.ctx, s.actor, TypeTermsAndConditions, map[string]any{"version": "3.0"})
		s.Require().NoError(err)

		verified, err := s.service.Verify(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.Fingerprint, verified.Fingerprint)
	})

	s.Run("tampered record reports integrity violation", func() {
		rec, err := s.service.Capture(s.ctx, s.actor, TypeTermsAndConditions, map[string]any{"version": "3.0"})
		s.Require().NoError(err)

		// Reach past the store API to simulate out-of-band tampering.
		s.store.mu.Lock()
		s.store.records[rec.ID].Payload["version"] = "99.0"
		s.store.mu.Unlock()

		_, err = s.service.Verify(s.ctx, rec.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrityViolation))

		// Verification never repairs: the stored record still fails.
		_, err = s.service.Verify(s.ctx, rec.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeIntegrityViolation))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Verify(s.ctx, domain.NewConsentID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// List Tests
// =============================================================================

func (s *ConsentServiceSuite) TestList() {
	_, err := s.service.Capture(s.ctx, s.actor, TypeTermsAndConditions, map[string]any{"v": "1"})
	s.Require().NoError(err)
	_, err = s.service.Capture(s.ctx, s.actor, TypeCreditCheck, map[string]any{"v": "2"})
	s.Require().NoError(err)

	other := domain.Actor{ID: domain.NewActorID(), Role: domain.RoleCustomer}
	_, err = s.service.Capture(s.ctx, other, TypeMarketing, map[string]any{"v": "3"})
	s.Require().NoError(err)

	records, err := s.service.List(s.ctx, s.actor.ID)
	s.Require().NoError(err)
	s.Len(records, 2)
	for _, rec := range records {
		s.Equal(s.actor.ID, rec.ActorID)
	}
}
