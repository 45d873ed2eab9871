package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"loancore/internal/audit"
	"loancore/pkg/domain"
	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/httputil"
	"loancore/pkg/requestcontext"
)

// Service defines the audit operations the HTTP layer needs.
type Service interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// Handler exposes the read side of the audit ledger. Routes are mounted
// behind an admin role gate; there is no write endpoint because entries are
// only ever appended by services.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.HandleQuery)
}

// HandleQuery handles GET /audit.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.Query(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Order:        audit.OrderDesc,
	}

	if raw := q.Get("actor_id"); raw != "" {
		actorID, err := domain.ParseActorID(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		filter.ActorID = &actorID
	}

	for _, raw := range q["action"] {
		action, err := audit.ParseAction(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		filter.Actions = append(filter.Actions, action)
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "from must be RFC3339")
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "to must be RFC3339")
		}
		filter.To = t
	}

	if raw := q.Get("order"); raw == string(audit.OrderAsc) {
		filter.Order = audit.OrderAsc
	}

	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "limit must be an integer")
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		return audit.Filter{}, dErrors.New(dErrors.CodeValidation, "offset must be an integer")
	}

	return filter, nil
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
