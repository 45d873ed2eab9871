// Package httpapi assembles the HTTP surface: middleware chain, feature
// routes, and operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "loancore/internal/audit/handler"
	consenthandler "loancore/internal/consent/handler"
	lifecyclehandler "loancore/internal/lifecycle/handler"
	"loancore/internal/platform/metrics"
	"loancore/internal/platform/middleware"
	statshandler "loancore/internal/stats/handler"
	"loancore/pkg/domain"
	"loancore/pkg/platform/httputil"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Lifecycle *lifecyclehandler.Handler
	Audit     *audithandler.Handler
	Consent   *consenthandler.Handler
	Stats     *statshandler.Handler

	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics

	// HealthChecks maps a dependency name to its checker; nil checkers are
	// skipped so the in-memory configuration stays healthy by construction.
	HealthChecks map[string]HealthChecker
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))

		deps.Lifecycle.Register(r)
		deps.Consent.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			deps.Audit.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleRiskOfficer, domain.RoleLoanOfficer))
			deps.Stats.Register(r)
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
