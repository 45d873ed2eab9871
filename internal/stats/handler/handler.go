package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loancore/internal/stats"
	"loancore/pkg/platform/httputil"
	"loancore/pkg/requestcontext"
)

// Service defines the statistics operations the HTTP layer needs.
type Service interface {
	Get(ctx context.Context) (stats.Summary, error)
}

// Handler exposes the portfolio statistics snapshot. Mounted behind a staff
// role gate; customers have no use for portfolio-wide numbers.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts statistics endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/statistics", h.HandleGet)
}

// HandleGet handles GET /statistics.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.Get(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "statistics computation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
