package lifecycle

import (
	"time"

	"loancore/pkg/domain"
)

// Application is a loan application governed by the lifecycle engine.
//
// Invariants: Status is always a member of the fixed state set; Version
// strictly increases on every committed transition; DecisionMaker and
// DecidedAt are written when a terminal review decision commits (approved or
// rejected) and cleared when an admin unlock reopens the application.
// Applications are never physically deleted; terminal states are retained
// for audit.
type Application struct {
	ID     domain.ApplicationID
	Number string
	Status domain.Status

	RequestedAmount float64
	LoanType        string

	ApplicantID     domain.ActorID
	AssignedOfficer *domain.ActorID
	DecisionMaker   *domain.ActorID

	SubmittedAt time.Time
	DecidedAt   *time.Time

	// Version is the optimistic-concurrency counter compared-and-swapped in
	// the same transaction as every status write.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so in-memory store reads never alias store state.
func (a *Application) Clone() *Application {
	cp := *a
	if a.AssignedOfficer != nil {
		officer := *a.AssignedOfficer
		cp.AssignedOfficer = &officer
	}
	if a.DecisionMaker != nil {
		maker := *a.DecisionMaker
		cp.DecisionMaker = &maker
	}
	if a.DecidedAt != nil {
		decided := *a.DecidedAt
		cp.DecidedAt = &decided
	}
	return &cp
}

// TimelineStep is one status the application has passed through, derived
// from the audit trail.
type TimelineStep struct {
	Status      domain.Status
	Timestamp   time.Time
	IsCompleted bool
	IsCurrent   bool
}

// StatusSummary is the read view for GetStatus: the current status plus a
// compressed history.
type StatusSummary struct {
	Status          domain.Status
	TransitionCount int
	UnlockCount     int
	LastChangedAt   time.Time
}
