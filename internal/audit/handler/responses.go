package handler

import (
	"time"

	"loancore/internal/audit"
)

// EntryResponse is the HTTP view of one audit entry.
type EntryResponse struct {
	ID           int64          `json:"id"`
	ActorID      *string        `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// EntriesResponse wraps the result list so the shape can grow a cursor later.
type EntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
}

func FromEntries(entries []audit.Entry) *EntriesResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := EntryResponse{
			ID:           e.ID,
			Action:       string(e.Action),
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Details:      e.Details,
			IPAddress:    e.IPAddress,
			UserAgent:    e.UserAgent,
			CreatedAt:    e.CreatedAt,
		}
		if e.ActorID != nil {
			s := e.ActorID.String()
			resp.ActorID = &s
		}
		out = append(out, resp)
	}
	return &EntriesResponse{Entries: out}
}
