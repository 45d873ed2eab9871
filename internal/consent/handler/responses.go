package handler

import (
	"time"

	"loancore/internal/consent"
)

// RecordResponse is the HTTP view of a consent record.
type RecordResponse struct {
	ID          string         `json:"id"`
	ActorID     string         `json:"actor_id"`
	ConsentType string         `json:"consent_type"`
	Payload     map[string]any `json:"payload"`
	Fingerprint string         `json:"fingerprint"`
	CapturedAt  time.Time      `json:"captured_at"`
}

func FromRecord(rec *consent.Record) *RecordResponse {
	return &RecordResponse{
		ID:          rec.ID.String(),
		ActorID:     rec.ActorID.String(),
		ConsentType: string(rec.ConsentType),
		Payload:     rec.Payload,
		Fingerprint: rec.Fingerprint,
		CapturedAt:  rec.CapturedAt,
	}
}

func FromRecords(recs []*consent.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *FromRecord(rec))
	}
	return out
}

// VerifyResponse reports the outcome of a fingerprint re-computation.
type VerifyResponse struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Verified    bool   `json:"verified"`
}
