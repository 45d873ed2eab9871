package domain

import (
	"github.com/google/uuid"

	dErrors "loancore/pkg/domain-errors"
)

// Typed identifiers keep application and actor IDs from being swapped at
// call sites. Construct via the Parse helpers at trust boundaries; direct
// casting bypasses validation.
type (
	// ApplicationID identifies a loan application.
	ApplicationID uuid.UUID

	// ActorID identifies an authenticated actor (customer or staff).
	ActorID uuid.UUID

	// ConsentID identifies a captured consent record.
	ConsentID uuid.UUID
)

// NewApplicationID generates a fresh application identifier.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// ParseApplicationID constructs an ApplicationID from external input.
// Returns CodeValidation for empty, malformed, or nil UUIDs.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	return ApplicationID(u), err
}

func (id ApplicationID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewActorID generates a fresh actor identifier.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// ParseActorID constructs an ActorID from external input.
// Returns CodeValidation for empty, malformed, or nil UUIDs.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	return ActorID(u), err
}

func (id ActorID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id ActorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewConsentID generates a fresh consent record identifier.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// ParseConsentID constructs a ConsentID from external input.
// Returns CodeValidation for empty, malformed, or nil UUIDs.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s, "consent id")
	return ConsentID(u), err
}

func (id ConsentID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id ConsentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s cannot be empty", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s cannot be the nil UUID", field)
	}
	return u, nil
}
