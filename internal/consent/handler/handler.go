package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loancore/internal/consent"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/httputil"
	"loancore/pkg/requestcontext"
)

// Service defines the consent operations the HTTP layer needs.
type Service interface {
	Capture(ctx context.Context, actor domain.Actor, consentType consent.Type, payload map[string]any) (*consent.Record, error)
	Verify(ctx context.Context, id domain.ConsentID) (*consent.Record, error)
	List(ctx context.Context, actorID domain.ActorID) ([]*consent.Record, error)
}

// Handler wires consent endpoints to the consent service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts consent endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.HandleCapture)
	r.Get("/consent", h.HandleList)
	r.Get("/consent/{id}/verify", h.HandleVerify)
}

// HandleCapture handles POST /consent.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[CaptureRequest](w, r)
	if !ok {
		return
	}

	rec, err := h.service.Capture(ctx, actor, req.ParsedType(), req.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "consent capture failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actor.ID,
			"consent_type", req.ConsentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent captured",
		"request_id", requestcontext.RequestID(ctx),
		"consent_id", rec.ID,
		"consent_type", rec.ConsentType,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleList handles GET /consent, returning the calling actor's records.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	recs, err := h.service.List(ctx, actor.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(recs))
}

// HandleVerify handles GET /consent/{id}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid consent id"))
		return
	}

	rec, err := h.service.Verify(ctx, id)
	if err != nil {
		// Integrity violations surface as errors; the stored record is left
		// untouched either way.
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &VerifyResponse{
		ID:          rec.ID.String(),
		Fingerprint: rec.Fingerprint,
		Verified:    true,
	})
}
