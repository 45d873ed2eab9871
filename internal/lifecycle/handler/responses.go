package handler

import (
	"time"

	"loancore/internal/lifecycle"
	"loancore/pkg/domain"
)

// ApplicationResponse is the HTTP view of an application.
type ApplicationResponse struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	Status          string     `json:"status"`
	RequestedAmount float64    `json:"requested_amount"`
	LoanType        string     `json:"loan_type"`
	ApplicantID     string     `json:"applicant_id"`
	AssignedOfficer *string    `json:"assigned_officer,omitempty"`
	DecisionMaker   *string    `json:"decision_maker,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	Version         int64      `json:"version"`
}

func FromApplication(app *lifecycle.Application) *ApplicationResponse {
	return &ApplicationResponse{
		ID:              app.ID.String(),
		Number:          app.Number,
		Status:          string(app.Status),
		RequestedAmount: app.RequestedAmount,
		LoanType:        app.LoanType,
		ApplicantID:     app.ApplicantID.String(),
		AssignedOfficer: actorIDString(app.AssignedOfficer),
		DecisionMaker:   actorIDString(app.DecisionMaker),
		SubmittedAt:     app.SubmittedAt,
		DecidedAt:       app.DecidedAt,
		Version:         app.Version,
	}
}

func actorIDString(id *domain.ActorID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// TransitionsResponse lists the targets the calling actor may move to.
type TransitionsResponse struct {
	CurrentStatus      string   `json:"current_status"`
	AllowedTransitions []string `json:"allowed_transitions"`
}

func FromTransitions(current domain.Status, targets []domain.Status) *TransitionsResponse {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, string(t))
	}
	return &TransitionsResponse{
		CurrentStatus:      string(current),
		AllowedTransitions: out,
	}
}

// StatusResponse is the HTTP view of a status summary.
type StatusResponse struct {
	Status          string    `json:"status"`
	TransitionCount int       `json:"transition_count"`
	UnlockCount     int       `json:"unlock_count"`
	LastChangedAt   time.Time `json:"last_changed_at"`
}

func FromStatusSummary(s lifecycle.StatusSummary) *StatusResponse {
	return &StatusResponse{
		Status:          string(s.Status),
		TransitionCount: s.TransitionCount,
		UnlockCount:     s.UnlockCount,
		LastChangedAt:   s.LastChangedAt,
	}
}

// TimelineStepResponse is one step of the timeline view.
type TimelineStepResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	IsCompleted bool      `json:"is_completed"`
	IsCurrent   bool      `json:"is_current"`
}

func FromTimeline(steps []lifecycle.TimelineStep) []TimelineStepResponse {
	out := make([]TimelineStepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, TimelineStepResponse{
			Status:      string(s.Status),
			Timestamp:   s.Timestamp,
			IsCompleted: s.IsCompleted,
			IsCurrent:   s.IsCurrent,
		})
	}
	return out
}
