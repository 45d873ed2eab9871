// Package service implements the application lifecycle engine: it validates
// requested transitions against the static graph, applies them under the
// optimistic-concurrency guard, and appends exactly one audit entry per
// committed change inside the same transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loancore/internal/audit"
	"loancore/internal/lifecycle"
	"loancore/internal/platform/metrics"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/sentinel"
	txpkg "loancore/pkg/platform/tx"
	"loancore/pkg/requestcontext"
)

// StatsInvalidator is notified after every committed transition so derived
// statistics never serve a stale snapshot.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service orchestrates the lifecycle. All mutations flow through here; the
// stores are never written directly by transports.
type Service struct {
	apps        lifecycle.Store
	ledger      *audit.Service
	runner      txpkg.Runner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	invalidator StatsInvalidator
	tracer      trace.Tracer
}

// Option adjusts optional service wiring.
type Option func(*Service)

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStatsInvalidator hooks the statistics cache into the commit path.
func WithStatsInvalidator(inv StatsInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// New wires the engine. The store, ledger, runner, and logger are required.
func New(apps lifecycle.Store, ledger *audit.Service, runner txpkg.Runner, logger *slog.Logger, opts ...Option) (*Service, error) {
	if apps == nil {
		return nil, errors.New("application store is required")
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
	s := &Service{
		apps:   apps,
		ledger: ledger,
		runner: runner,
		logger: logger,
		tracer: otel.Tracer("loancore/lifecycle"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitInput is the payload for creating an application.
type SubmitInput struct {
	RequestedAmount float64
	LoanType        string
}

// Submit creates an application in in_progress for the calling customer and
// records the creation in the ledger.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, input SubmitInput) (*lifecycle.Application, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Submit")
	defer span.End()

	if actor.Role != domain.RoleCustomer {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only customers submit applications")
	}
	if input.RequestedAmount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "requested_amount must be positive")
	}
	if strings.TrimSpace(input.LoanType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "loan_type is required")
	}

	now := requestcontext.Now(ctx)
	app := &lifecycle.Application{
		ID:              domain.NewApplicationID(),
		Number:          newApplicationNumber(now.Year()),
		Status:          domain.StatusInProgress,
		RequestedAmount: input.RequestedAmount,
		LoanType:        input.LoanType,
		ApplicantID:     actor.ID,
		SubmittedAt:     now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ctx = txpkg.WithShardKey(ctx, app.ID.String())
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.apps.Create(ctx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create application")
		}
		entry := &audit.Entry{
			ActorID:      &actor.ID,
			Action:       audit.ActionCreate,
			ResourceType: audit.ResourceApplication,
			ResourceID:   app.ID.String(),
			Details: map[string]any{
				"application_number": app.Number,
				"loan_type":          app.LoanType,
				"requested_amount":   app.RequestedAmount,
				"status":             app.Status.String(),
			},
		}
		return s.ledger.Append(ctx, entry)
	})
	if err != nil {
		return nil, s.translateTxErr(err)
	}

	s.metrics.RecordAuditAppend()
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "application created",
		"application_id", app.ID.String(),
		"application_number", app.Number,
	)
	span.SetAttributes(attribute.String("application.id", app.ID.String()))
	return app, nil
}

// RequestTransition moves an application along one graph edge. Exactly one
// durable mutation and one audit entry per successful call; a lost
// optimistic race returns CodeConflict with nothing applied.
func (s *Service) RequestTransition(ctx context.Context, id domain.ApplicationID, actor domain.Actor, target domain.Status, reason, notes string) (*lifecycle.Application, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.RequestTransition",
		trace.WithAttributes(
			attribute.String("application.id", id.String()),
			attribute.String("transition.target", target.String()),
		))
	defer span.End()

	return s.transition(ctx, id, actor, target, reason, notes, false)
}

// Unlock reopens an application from under_review, approved, or rejected
// back to in_progress. Admin-only, reason mandatory, audited as a distinct
// action so consumers never conflate it with forward progress.
func (s *Service) Unlock(ctx context.Context, id domain.ApplicationID, actor domain.Actor, reason string) (*lifecycle.Application, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.Unlock",
		trace.WithAttributes(attribute.String("application.id", id.String())))
	defer span.End()

	return s.transition(ctx, id, actor, domain.StatusInProgress, reason, "", true)
}

func (s *Service) transition(ctx context.Context, id domain.ApplicationID, actor domain.Actor, target domain.Status, reason, notes string, mustUnlock bool) (*lifecycle.Application, error) {
	var (
		updated *lifecycle.Application
		action  audit.Action
	)

	ctx = txpkg.WithShardKey(ctx, id.String())
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.Get(ctx, id)
		if err != nil {
			return s.translateStoreErr(err)
		}
		from := app.Status

		edge, err := lifecycle.Validate(from, target, actor.Role)
		if err != nil {
			return err
		}
		if mustUnlock && !edge.Unlock {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"application in %s cannot be unlocked", from)
		}
		if edge.OwnerOnly && actor.Role == domain.RoleCustomer && app.ApplicantID != actor.ID {
			return dErrors.New(dErrors.CodePermissionDenied,
				"customers may only act on their own application")
		}
		if edge.RequiresReason && strings.TrimSpace(reason) == "" {
			return dErrors.Newf(dErrors.CodeValidation,
				"a reason is required to move an application to %s", target)
		}

		now := requestcontext.Now(ctx)
		expected := app.Version

		app.Status = target
		app.UpdatedAt = now
		switch {
		case edge.Unlock:
			app.DecisionMaker = nil
			app.DecidedAt = nil
		case target.IsDecision():
			app.DecisionMaker = &actor.ID
			decidedAt := now
			app.DecidedAt = &decidedAt
		}
		if from == domain.StatusSubmitted && target == domain.StatusUnderReview && actor.Role.IsStaff() {
			app.AssignedOfficer = &actor.ID
		}

		if err := s.apps.UpdateCAS(ctx, app, expected); err != nil {
			return s.translateStoreErr(err)
		}

		action = audit.ActionTransition
		if edge.Unlock {
			action = audit.ActionUnlock
		}
		details := map[string]any{
			"from": from.String(),
			"to":   target.String(),
		}
		if reason != "" {
			details["reason"] = reason
		}
		if notes != "" {
			details["notes"] = notes
		}
		entry := &audit.Entry{
			ActorID:      &actor.ID,
			Action:       action,
			ResourceType: audit.ResourceApplication,
			ResourceID:   app.ID.String(),
			Details:      details,
			CreatedAt:    now,
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}

		updated = app
		return nil
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.RecordConflict()
		}
		return nil, s.translateTxErr(err)
	}

	s.metrics.RecordTransition(string(action), target.String())
	s.metrics.RecordAuditAppend()
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "application transitioned",
		"application_id", id.String(),
		"to_status", target.String(),
		"action", string(action),
		"actor_role", actor.Role.String(),
	)
	return updated, nil
}

// AllowedTransitions returns the target statuses the actor may request for
// the application in its current state. Pure with respect to stored state.
func (s *Service) AllowedTransitions(ctx context.Context, id domain.ApplicationID, actor domain.Actor) ([]domain.Status, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return lifecycle.AllowedTransitions(app, actor), nil
}

// Get returns the application by id.
func (s *Service) Get(ctx context.Context, id domain.ApplicationID) (*lifecycle.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	return app, nil
}

// GetStatus returns the current status with a compressed trail summary.
func (s *Service) GetStatus(ctx context.Context, id domain.ApplicationID) (lifecycle.StatusSummary, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return lifecycle.StatusSummary{}, s.translateStoreErr(err)
	}
	entries, err := s.ledger.Query(ctx, audit.Filter{
		ResourceType: audit.ResourceApplication,
		ResourceID:   id.String(),
		Actions:      []audit.Action{audit.ActionTransition, audit.ActionUnlock},
	})
	if err != nil {
		return lifecycle.StatusSummary{}, err
	}
	summary := lifecycle.StatusSummary{
		Status:        app.Status,
		LastChangedAt: app.UpdatedAt,
	}
	for _, e := range entries {
		if e.Action == audit.ActionUnlock {
			summary.UnlockCount++
		} else {
			summary.TransitionCount++
		}
	}
	return summary, nil
}

// GetTimeline derives the status history from the audit trail, filtered to
// creation, transition, and unlock entries, oldest first.
func (s *Service) GetTimeline(ctx context.Context, id domain.ApplicationID) ([]lifecycle.TimelineStep, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	entries, err := s.ledger.Query(ctx, audit.Filter{
		ResourceType: audit.ResourceApplication,
		ResourceID:   id.String(),
		Actions:      []audit.Action{audit.ActionCreate, audit.ActionTransition, audit.ActionUnlock},
		Order:        audit.OrderAsc,
	})
	if err != nil {
		return nil, err
	}

	steps := make([]lifecycle.TimelineStep, 0, len(entries))
	for _, e := range entries {
		status := domain.StatusInProgress
		if e.Action != audit.ActionCreate {
			to, ok := e.Details["to"].(string)
			if !ok {
				continue
			}
			status = domain.Status(to)
		}
		steps = append(steps, lifecycle.TimelineStep{
			Status:      status,
			Timestamp:   e.CreatedAt,
			IsCompleted: true,
		})
	}
	if len(steps) > 0 {
		last := &steps[len(steps)-1]
		last.IsCurrent = true
		last.IsCompleted = app.Status.IsTerminal()
	}
	return steps, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

func (s *Service) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrVersionMismatch):
		return dErrors.New(dErrors.CodeConflict, "application changed, please refresh")
	}
	return err
}

// translateTxErr surfaces deadlines as storage timeouts. The runner aborts
// the transaction, so no partial effect remains behind the error.
func (s *Service) translateTxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !dErrors.Is(err, dErrors.CodeStorageTimeout) {
		return dErrors.Wrap(err, dErrors.CodeStorageTimeout, "storage operation timed out")
	}
	return err
}

// newApplicationNumber derives a human-readable number. Uniqueness is
// enforced by the store's unique constraint; the suffix comes from a fresh
// UUID so collisions are vanishingly rare.
func newApplicationNumber(year int) string {
	u := uuid.New()
	n := uint32(u[0])<<16 | uint32(u[1])<<8 | uint32(u[2])
	return fmt.Sprintf("LN-%d-%06d", year, n%1000000)
}
