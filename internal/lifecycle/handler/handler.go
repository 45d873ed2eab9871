package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"loancore/internal/lifecycle"
	"loancore/internal/lifecycle/service"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/httputil"
	"loancore/pkg/requestcontext"
)

// Service defines the lifecycle operations the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, actor domain.Actor, input service.SubmitInput) (*lifecycle.Application, error)
	RequestTransition(ctx context.Context, id domain.ApplicationID, actor domain.Actor, target domain.Status, reason, notes string) (*lifecycle.Application, error)
	Unlock(ctx context.Context, id domain.ApplicationID, actor domain.Actor, reason string) (*lifecycle.Application, error)
	AllowedTransitions(ctx context.Context, id domain.ApplicationID, actor domain.Actor) ([]domain.Status, error)
	Get(ctx context.Context, id domain.ApplicationID) (*lifecycle.Application, error)
	GetStatus(ctx context.Context, id domain.ApplicationID) (lifecycle.StatusSummary, error)
	GetTimeline(ctx context.Context, id domain.ApplicationID) ([]lifecycle.TimelineStep, error)
}

// Handler wires application lifecycle endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lifecycle endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleSubmit)
	r.Get("/applications/{id}", h.HandleGet)
	r.Get("/applications/{id}/transitions", h.HandleAllowedTransitions)
	r.Post("/applications/{id}/transitions", h.HandleTransition)
	r.Post("/applications/{id}/unlock", h.HandleUnlock)
	r.Get("/applications/{id}/status", h.HandleStatus)
	r.Get("/applications/{id}/timeline", h.HandleTimeline)
}

// HandleSubmit handles POST /applications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r)
	if !ok {
		return
	}

	app, err := h.service.Submit(ctx, actor, service.SubmitInput{
		RequestedAmount: req.RequestedAmount,
		LoanType:        req.LoanType,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "application submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application submitted",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", app.ID,
		"number", app.Number,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromApplication(app))
}

// HandleGet handles GET /applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}

	app, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.mayView(requestcontext.Actor(ctx), app) {
		httputil.WriteError(w, dErrors.New(dErrors.CodePermissionDenied, "not your application"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleAllowedTransitions handles GET /applications/{id}/transitions.
func (h *Handler) HandleAllowedTransitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}

	app, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.mayView(actor, app) {
		httputil.WriteError(w, dErrors.New(dErrors.CodePermissionDenied, "not your application"))
		return
	}
	targets, err := h.service.AllowedTransitions(ctx, id, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransitions(app.Status, targets))
}

// HandleTransition handles POST /applications/{id}/transitions.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	actor := requestcontext.Actor(ctx)
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r)
	if !ok {
		return
	}

	app, err := h.service.RequestTransition(ctx, id, actor, req.ParsedTarget(), req.Reason, req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "transition failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", id,
			"target_status", req.TargetStatus,
			"actor_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transition committed",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", id,
		"status", app.Status,
		"version", app.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleUnlock handles POST /applications/{id}/unlock.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UnlockRequest](w, r)
	if !ok {
		return
	}

	app, err := h.service.Unlock(ctx, id, actor, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "unlock failed",
			"request_id", requestcontext.RequestID(ctx),
			"application_id", id,
			"actor_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application unlocked",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", id,
		"version", app.Version,
	)
	httputil.WriteJSON(w, http.StatusOK, FromApplication(app))
}

// HandleStatus handles GET /applications/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	if !h.gateView(w, r, id) {
		return
	}

	summary, err := h.service.GetStatus(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatusSummary(summary))
}

// HandleTimeline handles GET /applications/{id}/timeline.
func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	if !h.gateView(w, r, id) {
		return
	}

	steps, err := h.service.GetTimeline(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTimeline(steps))
}

func (h *Handler) applicationID(w http.ResponseWriter, r *http.Request) (domain.ApplicationID, bool) {
	id, err := domain.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid application id"))
		return domain.ApplicationID{}, false
	}
	return id, true
}

// mayView lets staff see any application and customers only their own.
func (h *Handler) mayView(actor domain.Actor, app *lifecycle.Application) bool {
	if actor.Role.IsStaff() {
		return true
	}
	return actor.ID == app.ApplicantID
}

// gateView loads the application and enforces mayView, writing the error
// response itself. Every per-application read goes through it so status
// history is no more visible than the application record.
func (h *Handler) gateView(w http.ResponseWriter, r *http.Request, id domain.ApplicationID) bool {
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return false
	}
	if !h.mayView(requestcontext.Actor(r.Context()), app) {
		httputil.WriteError(w, dErrors.New(dErrors.CodePermissionDenied, "not your application"))
		return false
	}
	return true
}
