package handler

import (
	"net/http"
	"time"

	"github.com/agentnetwork/agent-gateway/internal/config"
	"github.com/agentnetwork/agent-gateway/internal/middleware"
	"github.com/agentnetwork/agent-gateway/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Config     *config.Config
	Auth       *AuthHandler
	Capability *CapabilityHandler
	Admin      *AdminHandler
	Health     *HealthHandler
	Tokens     *service.TokenService
	Analytics  *service.AnalyticsService
	Shipper    middleware.Publisher
}

// NewRouter builds the chi router with the full middleware stack and all
// API v2 routes.
func NewRouter(d RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(middleware.NewRequestAuditMW(d.Shipper).Handler)
	r.Use(middleware.Recoverer(d.Analytics))
	r.Use(chimw.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Content-Type", "Authorization", "X-Admin-Key"},
		MaxAge:             300,
		OptionsPassthrough: true,
	}))
	// OPTIONS answers 204 on every path, before routing, so neither chi's
	// per-route method matching nor the auth middlewares get in the way. The
	// CORS middleware above has already attached its headers by this point.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", d.Health.Health)
	r.Get("/health", d.Health.Health)

	requireBearer := middleware.RequireBearer(d.Tokens, d.Analytics)

	r.Route("/api/v2", func(api chi.Router) {
		api.Route("/agent/auth", func(auth chi.Router) {
			auth.Get("/", d.Auth.DescribeAuth)
			auth.Group(func(submit chi.Router) {
				if d.Config.RateLimit.Enabled {
					submit.Use(httprate.LimitByIP(d.Config.RateLimit.RequestsPerWindow, d.Config.RateLimit.Window))
				}
				submit.Post("/", d.Auth.SubmitAuth)
			})
			auth.Get("/{id}", d.Auth.PollAuth)
		})

		api.Group(func(capability chi.Router) {
			capability.Use(requireBearer)
			capability.Post("/agent/messages", d.Capability.PostMessage)
			capability.Get("/agent/messages", d.Capability.ReadMessages)
			capability.Post("/agent/questions", d.Capability.AskQuestion)
			capability.Get("/agent/peers", d.Capability.DiscoverPeers)
			capability.Post("/agent/subscribe", d.Capability.Subscribe)
			capability.Post("/secret", d.Capability.CreateSecret)
			capability.Post("/agent/handoff", d.Capability.Handoff)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.RequireAdminKey(d.Config.AdminKey))
			admin.Get("/analytics", d.Admin.GetAnalytics)
			admin.Get("/auth-attempts", d.Admin.GetAuthAttempts)
		})
	})

	return r
}
