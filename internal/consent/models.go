package consent

import (
	"time"

	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
)

// Type labels what the actor consented to. The set is closed; construct via
// ParseType at trust boundaries.
type Type string

const (
	TypeTermsAndConditions Type = "terms_and_conditions"
	TypeCreditCheck        Type = "credit_check"
	TypeDataProcessing     Type = "data_processing"
	TypeMarketing          Type = "marketing"
)

var validTypes = map[Type]bool{
	TypeTermsAndConditions: true,
	TypeCreditCheck:        true,
	TypeDataProcessing:     true,
	TypeMarketing:          true,
}

// ParseType constructs a Type from external input.
// Errors: CodeValidation when the value is empty or unsupported.
func ParseType(s string) (Type, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "consent_type cannot be empty")
	}
	t := Type(s)
	if !validTypes[t] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown consent_type %q", s)
	}
	return t, nil
}

func (t Type) String() string { return string(t) }

// Record is one captured consent. Insert-only; the fingerprint binds the
// sanitized payload to its capture context so tampering is detectable by
// recomputation.
type Record struct {
	ID          domain.ConsentID
	ActorID     domain.ActorID
	ConsentType Type
	Payload     map[string]any
	Fingerprint string
	CapturedAt  time.Time
	IPAddress   string
	UserAgent   string
}
