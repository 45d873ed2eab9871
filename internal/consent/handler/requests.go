package handler

import (
	"strings"

	"loancore/internal/consent"
	dErrors "loancore/pkg/domain-errors"
)

// CaptureRequest is the HTTP request body for POST /consent.
type CaptureRequest struct {
	ConsentType string         `json:"consent_type"`
	Payload     map[string]any `json:"payload"`

	parsedType consent.Type
}

func (r *CaptureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ConsentType = strings.TrimSpace(r.ConsentType)
	if r.ConsentType == "" {
		return dErrors.New(dErrors.CodeValidation, "consent_type is required")
	}
	t, err := consent.ParseType(r.ConsentType)
	if err != nil {
		return err
	}
	r.parsedType = t

	if len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeValidation, "payload is required")
	}
	return nil
}

func (r *CaptureRequest) ParsedType() consent.Type { return r.parsedType }
