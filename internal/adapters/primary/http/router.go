package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/lorrc/ticket-workflow/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-workflow/internal/auth"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
)

// RouterDeps carries everything NewRouter mounts. Rate limiters are
// optional.
type RouterDeps struct {
	Logger            *slog.Logger
	TokenManager      *auth.TokenManager
	CronSecret        string
	AllowedOrigins    []string
	GeneralLimiter    *mw.RateLimiter
	AutomationLimiter *mw.RateLimiter

	Health     *HealthHandler
	Tickets    *TicketHandler
	CSV        *CSVHandler
	Automation *AutomationHandler
	WebSocket  http.Handler
}

// NewRouter assembles the HTTP surface of the service.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(deps.Logger))
	r.Use(mw.RecoveryLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Cron-Secret"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.GeneralLimiter != nil {
		r.Use(deps.GeneralLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	deps.Health.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", deps.WebSocket.ServeHTTP)

		r.Route("/automation", func(r chi.Router) {
			if deps.AutomationLimiter != nil {
				r.Use(deps.AutomationLimiter.Middleware)
			}
			deps.Automation.RegisterRoutes(r,
				mw.CronSecret(deps.CronSecret),
				chi.Chain(mw.JWTMiddleware(deps.TokenManager), mw.RequireRole(domain.RoleManager)).Handler,
			)
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(deps.TokenManager))
			r.Route("/tickets", deps.Tickets.RegisterRoutes)

			r.Route("/csv", func(r chi.Router) {
				r.Use(mw.RequireRole(domain.RoleManager))
				if deps.AutomationLimiter != nil {
					r.Use(deps.AutomationLimiter.Middleware)
				}
				deps.CSV.RegisterRoutes(r)
			})
		})
	})

	return r
}
