package audit

import (
	"time"

	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
)

// Action tags what an audit entry records. The set is closed; audit
// consumers rely on unlock being distinct from forward transitions.
type Action string

const (
	// ActionTransition records a committed forward move along a graph edge.
	ActionTransition Action = "transition"

	// ActionUnlock records an admin reopening an application. Kept separate
	// from ActionTransition so "reopened" is never read as "advanced".
	ActionUnlock Action = "unlock"

	// ActionCreate records an application entering the system.
	ActionCreate Action = "create"

	// ActionConsentCapture records a fingerprinted consent payload.
	ActionConsentCapture Action = "consent_capture"
)

var validActions = map[Action]bool{
	ActionTransition:     true,
	ActionUnlock:         true,
	ActionCreate:         true,
	ActionConsentCapture: true,
}

// ParseAction validates an action name from external input.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !validActions[a] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown audit action %q", s)
	}
	return a, nil
}

// Resource types referenced by entries.
const (
	ResourceApplication = "application"
	ResourceConsent     = "consent"
)

// Entry is one immutable audit record. Once appended it is never updated or
// deleted; the store interface exposes no such operation.
type Entry struct {
	ID int64

	// ActorID is nil for system-initiated events.
	ActorID *domain.ActorID

	Action       Action
	ResourceType string
	ResourceID   string

	// Details is sanitized by the ledger before persistence: keys on the
	// deny list are redacted, nested maps included.
	Details map[string]any

	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Order selects the sort direction for queries.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Filter narrows a ledger query. Zero-value fields match everything.
type Filter struct {
	ResourceType string
	ResourceID   string
	ActorID      *domain.ActorID
	Actions      []Action
	From         time.Time
	To           time.Time

	Order  Order
	Limit  int
	Offset int
}

func (f Filter) matchesAction(a Action) bool {
	if len(f.Actions) == 0 {
		return true
	}
	for _, want := range f.Actions {
		if want == a {
			return true
		}
	}
	return false
}
