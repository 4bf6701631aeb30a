package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/incident-ai-gateway/app"
	"github.com/upb/incident-ai-gateway/handlers"
	gwmw "github.com/upb/incident-ai-gateway/middleware"
	"github.com/upb/incident-ai-gateway/utils"
)

// routeTimeout bounds a whole HTTP exchange, including every provider attempt
const routeTimeout = 120 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(routeTimeout))
	r.Use(gwmw.RequestContext)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", gwmw.CallerIDHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, handlers.DegradedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	aiHandler := handlers.NewAIHandler(deps.Manager, deps.Config.AI.DefaultModel, deps.Logger.Named("http"))

	// API v1 routes
	r.Route("/api/v1/ai", func(r chi.Router) {
		r.Post("/requests", aiHandler.HandleCreateRequest)
		r.Get("/providers", aiHandler.HandleListProviders)
		r.Get("/status", handlers.StatusHandler(deps))
	})

	return r
}
