// Package api exposes the pack picker over HTTP.
//
//	GET  /api/pack/picker                   per-booster chances of a new card
//	GET  /api/boosters                      catalog boosters
//	GET  /api/boosters/{boosterID}/odds     closed-form pack odds
//	POST /api/boosters/{boosterID}/open     one simulated opening
//	GET  /healthz, /metrics
//
// Calls under /api/pack and the open endpoint need the X-User-ID header.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	RequestTimeout    time.Duration
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(Metrics)
	r.Use(AccessLog)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		if cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/boosters", h.Boosters)
		r.Get("/boosters/{boosterID}/odds", h.BoosterOdds)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/pack/picker", h.PackPicker)
			r.Post("/boosters/{boosterID}/open", h.OpenBooster)
		})
	})

	return r
}
