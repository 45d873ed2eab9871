package handler

import (
	"strings"

	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
)

const (
	maxLoanTypeLength = 64
	maxReasonLength   = 1024
	maxNotesLength    = 4096
)

// SubmitRequest is the HTTP request body for POST /applications.
type SubmitRequest struct {
	RequestedAmount float64 `json:"requested_amount"`
	LoanType        string  `json:"loan_type"`
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.RequestedAmount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "requested_amount must be positive")
	}
	r.LoanType = strings.TrimSpace(r.LoanType)
	if r.LoanType == "" {
		return dErrors.New(dErrors.CodeValidation, "loan_type is required")
	}
	if len(r.LoanType) > maxLoanTypeLength {
		return dErrors.Newf(dErrors.CodeValidation, "loan_type must be at most %d characters", maxLoanTypeLength)
	}
	return nil
}

// TransitionRequest is the HTTP request body for POST /applications/{id}/transitions.
type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes"`

	parsedTarget domain.Status
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TargetStatus = strings.TrimSpace(r.TargetStatus)
	if r.TargetStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "target_status is required")
	}
	target, err := domain.ParseStatus(r.TargetStatus)
	if err != nil {
		return err
	}
	r.parsedTarget = target

	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return dErrors.Newf(dErrors.CodeValidation, "reason must be at most %d characters", maxReasonLength)
	}
	if len(r.Notes) > maxNotesLength {
		return dErrors.Newf(dErrors.CodeValidation, "notes must be at most %d characters", maxNotesLength)
	}
	return nil
}

func (r *TransitionRequest) ParsedTarget() domain.Status { return r.parsedTarget }

// UnlockRequest is the HTTP request body for POST /applications/{id}/unlock.
type UnlockRequest struct {
	Reason string `json:"reason"`
}

func (r *UnlockRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.Newf(dErrors.CodeValidation, "reason must be at most %d characters", maxReasonLength)
	}
	return nil
}
