package consent

import (
	"context"
	"errors"
	"log/slog"

	"loancore/internal/audit"
	"loancore/internal/platform/metrics"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/sentinel"
	txpkg "loancore/pkg/platform/tx"
	"loancore/pkg/requestcontext"
)

// Service captures and verifies fingerprinted consents. A capture persists
// the sanitized record and its audit entry in one transaction.
type Service struct {
	store   Store
	ledger  *audit.Service
	runner  txpkg.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New wires the consent service. Store, ledger, runner, and logger are
// required; metrics are optional.
func New(store Store, ledger *audit.Service, runner txpkg.Runner, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if store == nil {
		return nil, errors.New("consent store is required")
	}
	if ledger == nil {
		return nil, errors.New("audit ledger is required")
	}
	if runner == nil {
		return nil, errors.New("transaction runner is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{store: store, ledger: ledger, runner: runner, logger: logger, metrics: m}, nil
}

// Capture sanitizes the payload, fingerprints it against the request
// context, and persists record plus audit entry atomically.
func (s *Service) Capture(ctx context.Context, actor domain.Actor, consentType Type, payload map[string]any) (*Record, error) {
	if actor.IsSystem() {
		return nil, dErrors.New(dErrors.CodeValidation, "consent requires an authenticated actor")
	}
	if len(payload) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "consent payload cannot be empty")
	}

	now := requestcontext.Now(ctx)
	ip := requestcontext.ClientIP(ctx)
	userAgent := requestcontext.UserAgent(ctx)

	record := &Record{
		ID:          domain.NewConsentID(),
		ActorID:     actor.ID,
		ConsentType: consentType,
		Payload:     audit.Sanitize(payload),
		CapturedAt:  now,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	// The digest covers the sanitized payload: what is stored is exactly
	// what can be re-verified.
	record.Fingerprint = Fingerprint(record.Payload, record.CapturedAt, ip, userAgent)

	ctx = txpkg.WithShardKey(ctx, actor.ID.String())
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save consent record")
		}
		entry := &audit.Entry{
			ActorID:      &actor.ID,
			Action:       audit.ActionConsentCapture,
			ResourceType: audit.ResourceConsent,
			ResourceID:   record.ID.String(),
			Details: map[string]any{
				"consent_type": consentType.String(),
				"fingerprint":  record.Fingerprint,
			},
			CreatedAt: now,
		}
		return s.ledger.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordConsentCapture()
	s.metrics.RecordAuditAppend()
	s.logger.InfoContext(ctx, "consent captured",
		"consent_id", record.ID.String(),
		"consent_type", consentType.String(),
	)
	return record, nil
}

// Verify recomputes the stored record's fingerprint. A mismatch is reported
// as CodeIntegrityViolation, never silently corrected.
func (s *Service) Verify(ctx context.Context, id domain.ConsentID) (*Record, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "consent record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load consent record")
	}
	if !VerifyRecord(record) {
		s.logger.WarnContext(ctx, "consent fingerprint mismatch",
			"consent_id", id.String(),
		)
		return nil, dErrors.New(dErrors.CodeIntegrityViolation,
			"consent record fingerprint does not match stored fields")
	}
	return record, nil
}

// List returns the actor's consent records, oldest first.
func (s *Service) List(ctx context.Context, actorID domain.ActorID) ([]*Record, error) {
	records, err := s.store.ListByActor(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list consent records")
	}
	return records, nil
}
