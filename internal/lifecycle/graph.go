package lifecycle

import (
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
)

// Edge is one legal transition in the lifecycle graph.
type Edge struct {
	From domain.Status
	To   domain.Status

	// Roles qualifying for this edge. The set is fixed at build time.
	Roles []domain.Role

	// RequiresReason marks edges that must carry a non-blank reason
	// (rejection, cancellation, unlock).
	RequiresReason bool

	// Unlock marks the admin-only reverse edges back to in_progress. They
	// are audited as a distinct action so consumers never conflate
	// "reopened" with "advanced".
	Unlock bool

	// OwnerOnly restricts customers to their own application. Staff roles
	// on the same edge are unaffected.
	OwnerOnly bool
}

// allows reports whether the role qualifies for this edge.
func (e Edge) allows(role domain.Role) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// edges is the full static graph. in_progress is the sole entry state.
//
// Cancellation is reachable from every non-terminal state except
// awaiting_disbursement: once funds are moving, cancelling would strand a
// disbursement in flight, so the flow must finish or be reopened by an admin.
var edges = []Edge{
	{
		From:      domain.StatusInProgress,
		To:        domain.StatusSubmitted,
		Roles:     []domain.Role{domain.RoleCustomer},
		OwnerOnly: true,
	},
	{
		From:  domain.StatusSubmitted,
		To:    domain.StatusUnderReview,
		Roles: []domain.Role{domain.RoleLoanOfficer, domain.RoleRiskOfficer, domain.RoleAdmin},
	},
	{
		From:  domain.StatusUnderReview,
		To:    domain.StatusApproved,
		Roles: []domain.Role{domain.RoleRiskOfficer, domain.RoleAdmin},
	},
	{
		From:           domain.StatusUnderReview,
		To:             domain.StatusRejected,
		Roles:          []domain.Role{domain.RoleRiskOfficer, domain.RoleAdmin},
		RequiresReason: true,
	},
	{
		From:  domain.StatusApproved,
		To:    domain.StatusAwaitingDisbursement,
		Roles: []domain.Role{domain.RoleLoanOfficer, domain.RoleAdmin},
	},
	{
		From:  domain.StatusAwaitingDisbursement,
		To:    domain.StatusDone,
		Roles: []domain.Role{domain.RoleLoanOfficer, domain.RoleAdmin},
	},

	// Cancellation edges.
	{
		From:           domain.StatusInProgress,
		To:             domain.StatusCancelled,
		Roles:          []domain.Role{domain.RoleCustomer, domain.RoleAdmin},
		RequiresReason: true,
		OwnerOnly:      true,
	},
	{
		From:           domain.StatusSubmitted,
		To:             domain.StatusCancelled,
		Roles:          []domain.Role{domain.RoleCustomer, domain.RoleAdmin},
		RequiresReason: true,
		OwnerOnly:      true,
	},
	{
		From:           domain.StatusUnderReview,
		To:             domain.StatusCancelled,
		Roles:          []domain.Role{domain.RoleCustomer, domain.RoleAdmin},
		RequiresReason: true,
		OwnerOnly:      true,
	},
	{
		From:           domain.StatusApproved,
		To:             domain.StatusCancelled,
		Roles:          []domain.Role{domain.RoleCustomer, domain.RoleAdmin},
		RequiresReason: true,
		OwnerOnly:      true,
	},

	// Unlock edges: admin-only reopen back to in_progress.
	{
		From:           domain.StatusUnderReview,
		To:             domain.StatusInProgress,
		Roles:          []domain.Role{domain.RoleAdmin},
		RequiresReason: true,
		Unlock:         true,
	},
	{
		From:           domain.StatusApproved,
		To:             domain.StatusInProgress,
		Roles:          []domain.Role{domain.RoleAdmin},
		RequiresReason: true,
		Unlock:         true,
	},
	{
		From:           domain.StatusRejected,
		To:             domain.StatusInProgress,
		Roles:          []domain.Role{domain.RoleAdmin},
		RequiresReason: true,
		Unlock:         true,
	},
}

// graph indexes edges by (from, to) for O(1) validation.
var graph = func() map[domain.Status]map[domain.Status]Edge {
	g := make(map[domain.Status]map[domain.Status]Edge)
	for _, e := range edges {
		if g[e.From] == nil {
			g[e.From] = make(map[domain.Status]Edge)
		}
		g[e.From][e.To] = e
	}
	return g
}()

// LookupEdge returns the edge from → to if it is defined in the graph.
func LookupEdge(from, to domain.Status) (Edge, bool) {
	e, ok := graph[from][to]
	return e, ok
}

// Validate checks the requested transition against the graph and the actor's
// role. Pure and deterministic; fails closed on anything unknown.
//
// Errors: CodePermissionDenied for an unknown target, an unknown role, a
// role that does not qualify for the edge, or a role with no capability at
// all from the current status; CodeInvalidTransition when the status has no
// such outgoing edge (terminal states have none).
func Validate(from, to domain.Status, role domain.Role) (Edge, error) {
	if !to.IsValid() || !role.IsValid() {
		return Edge{}, dErrors.New(dErrors.CodePermissionDenied, "transition not permitted")
	}
	e, ok := LookupEdge(from, to)
	if ok {
		if !e.allows(role) {
			return Edge{}, dErrors.Newf(dErrors.CodePermissionDenied,
				"role %s may not move an application from %s to %s", role, from, to)
		}
		return e, nil
	}
	// No from → to edge. A role with no capability from this status at all
	// gets a permission error; a qualified role asking for a nonexistent
	// edge gets an invalid-transition error.
	outgoing := graph[from]
	if len(outgoing) > 0 {
		any := false
		for _, candidate := range outgoing {
			if candidate.allows(role) {
				any = true
				break
			}
		}
		if !any {
			return Edge{}, dErrors.Newf(dErrors.CodePermissionDenied,
				"role %s may not move an application out of %s", role, from)
		}
	}
	return Edge{}, dErrors.Newf(dErrors.CodeInvalidTransition,
		"no transition from %s to %s", from, to)
}

// AllowedTransitions returns the target statuses the actor may move the
// application to from its current status. Ownership gating applies: a
// customer gets owner-only edges for their own application only. The result
// is in stable lifecycle order; repeated calls with unchanged state return
// the identical set.
func AllowedTransitions(app *Application, actor domain.Actor) []domain.Status {
	out := make([]domain.Status, 0, 4)
	outgoing := graph[app.Status]
	for _, to := range domain.AllStatuses() {
		e, ok := outgoing[to]
		if !ok || !e.allows(actor.Role) {
			continue
		}
		if e.OwnerOnly && actor.Role == domain.RoleCustomer && app.ApplicantID != actor.ID {
			continue
		}
		out = append(out, to)
	}
	return out
}
