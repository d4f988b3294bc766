package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ringside/internal/platform/metrics"
	"ringside/internal/ratelimit/models"
	"ringside/pkg/platform/httputil"
	authmw "ringside/pkg/platform/middleware/auth"
	"ringside/pkg/platform/middleware/metadata"
	"ringside/pkg/platform/middleware/request"
	"ringside/pkg/platform/middleware/requesttime"
)

// RouterDeps are the cross-cutting collaborators of the router.
type RouterDeps struct {
	Verifier authmw.IdentityVerifier
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// RateLimit charges mutating routes to per-IP budgets. Nil disables it.
	RateLimit RateLimiter
}

// RateLimiter builds per-class limiting middleware.
type RateLimiter interface {
	Limit(class models.EndpointClass) func(http.Handler) http.Handler
}

// NewRouter wires every callable under /v1 plus /healthz and /metrics.
func NewRouter(h *Handler, deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(request.Context)
	r.Use(middleware.Recoverer)
	r.Use(request.Logger(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", h.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(middleware.Timeout(30 * time.Second))
		v1.Use(latency(deps.Metrics))
		v1.Use(authmw.Authenticate(deps.Verifier, logger))

		v1.Get("/admin/audit-logs", h.handleListAuditLogs)

		v1.Group(func(w chi.Router) {
			w.Use(limit(deps.RateLimit, models.ClassWrite))

			w.Post("/admin/claims", h.handleSetAdminClaim)
			w.Put("/admin/settings/kill-switch", h.handleSetKillSwitch)

			w.Post("/proposals", h.handleCreateProposal)
			w.Post("/proposals/{id}/submit", h.handleSubmitProposal)
			w.Post("/proposals/{id}/respond", h.handleRespondToProposal)
			w.Post("/proposals/{id}/withdraw", h.handleWithdrawProposal)

			w.Post("/bouts/{id}/void", h.handleVoidBout)

			w.Post("/tokens", h.handleIssueToken)
		})

		v1.With(limit(deps.RateLimit, models.ClassRedeem)).Post("/tokens/{id}/redeem", h.handleRedeemToken)
	})

	return r
}

func limit(rl RateLimiter, class models.EndpointClass) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Limit(class)
}

// latency records per-route timings keyed by the chi route pattern so ids in
// paths do not explode label cardinality.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(route, r.Method, ww.Status(), time.Since(start).Seconds())
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.checkWait)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
