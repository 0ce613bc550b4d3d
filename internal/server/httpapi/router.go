// Package httpapi is the HTTP surface of the server: routing, request
// decoding, and the mapping from service errors to status codes.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services holds the controllers the router dispatches to.
type Services struct {
	Setup    *services.SetupService
	OAuth    *services.OAuthService
	Checkout *services.CheckoutService
	Audit    *services.AuditService
	Inbound  *services.InboundService
}

type handlers struct {
	svc     Services
	store   Pinger
	logger  logging.Logger
	metrics *metrics.Collectors
}

// NewRouter wires every route.
func NewRouter(cfg *config.Config, svc Services, store Pinger, mc *metrics.Collectors, logger logging.Logger) http.Handler {
	h := &handlers{
		svc:     svc,
		store:   store,
		logger:  logger.With("module", "http"),
		metrics: mc,
	}

	var limiter *rate.Limiter
	if cfg.PublicRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PublicRateLimit), max(cfg.PublicRateBurst, 1))
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(h.logger, mc),
		middleware.Recoverer,
		cors,
		middleware.GetHead,
	)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", mc.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/store-secrets", h.storeSecrets)
		r.Get("/setup/status", h.setupStatus)

		r.Get("/oauth/init", h.oauthInit)
		r.Get("/oauth/callback", h.oauthCallback)
		r.Get("/oauth/status", h.oauthStatus)

		r.Get("/deliver", h.deliver)
		r.Get("/download/{sessionId}", h.download)
		r.Get("/audit/logs", h.auditLogs)

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit(limiter))
			r.Post("/create-checkout", h.createCheckout)
			r.Post("/inbound-email", h.inboundEmail)
			r.Post("/audit", h.recordAudit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	return r
}
