package domain

import dErrors "loancore/pkg/domain-errors"

// Status is a loan application's lifecycle state.
// Invariant: the value must be one of the fixed states below. Construct via
// ParseStatus at trust boundaries; direct casting bypasses validation.
type Status string

// The fixed state set. InProgress is the sole initial state; Done, Rejected,
// and Cancelled are terminal for forward flow (unlock is the audited
// exception, see the lifecycle graph).
const (
	StatusInProgress           Status = "in_progress"
	StatusSubmitted            Status = "submitted"
	StatusUnderReview          Status = "under_review"
	StatusApproved             Status = "approved"
	StatusAwaitingDisbursement Status = "awaiting_disbursement"
	StatusDone                 Status = "done"
	StatusRejected             Status = "rejected"
	StatusCancelled            Status = "cancelled"
)

// validStatuses is the single source of truth for the state set.
var validStatuses = map[Status]bool{
	StatusInProgress:           true,
	StatusSubmitted:            true,
	StatusUnderReview:          true,
	StatusApproved:             true,
	StatusAwaitingDisbursement: true,
	StatusDone:                 true,
	StatusRejected:             true,
	StatusCancelled:            true,
}

// AllStatuses returns the full state set in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusInProgress,
		StatusSubmitted,
		StatusUnderReview,
		StatusApproved,
		StatusAwaitingDisbursement,
		StatusDone,
		StatusRejected,
		StatusCancelled,
	}
}

// ParseStatus constructs a Status from external input.
// Errors: CodeValidation when the value is empty or not in the state set.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "status cannot be empty")
	}
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
	}
	return st, nil
}

// IsValid reports whether the status is a member of the fixed state set.
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether forward flow ends at this status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusRejected || s == StatusCancelled
}

// IsDecision reports whether the status represents a terminal review
// decision, which sets decision_maker and decided_at on the application.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string { return string(s) }
