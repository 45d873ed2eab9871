package domain

import dErrors "loancore/pkg/domain-errors"

// Role is an attribute of the authenticated actor, supplied by the identity
// collaborator. The set is closed and known at compile time.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleRiskOfficer Role = "risk_officer"
	RoleLoanOfficer Role = "loan_officer"
	RoleSupport     Role = "support"
	RoleCustomer    Role = "customer"
)

var validRoles = map[Role]bool{
	RoleAdmin:       true,
	RoleRiskOfficer: true,
	RoleLoanOfficer: true,
	RoleSupport:     true,
	RoleCustomer:    true,
}

// AllRoles returns the closed role set.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleRiskOfficer, RoleLoanOfficer, RoleSupport, RoleCustomer}
}

// ParseRole constructs a Role from external input (typically a JWT claim).
// Errors: CodeValidation when the value is empty or not a known role.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether the role is a member of the closed set.
func (r Role) IsValid() bool { return validRoles[r] }

// IsStaff reports whether the role belongs to back-office staff.
func (r Role) IsStaff() bool { return r != RoleCustomer && r.IsValid() }

func (r Role) String() string { return string(r) }

// Actor is the authenticated caller as supplied by the identity
// collaborator. The engine never mutates actors; it only checks the role
// against the transition graph and records the ID in the audit trail.
type Actor struct {
	ID   ActorID
	Role Role
}

// System is the actor recorded for system-initiated events. Its ID is nil,
// which the audit ledger persists as a NULL actor.
func System() Actor { return Actor{} }

// IsSystem reports whether this is a system-initiated (actorless) event.
func (a Actor) IsSystem() bool { return a.ID.IsNil() }
