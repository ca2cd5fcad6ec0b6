package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jntm/fundtheme/app"
	"github.com/jntm/fundtheme/handlers"
	"github.com/jntm/fundtheme/internal/observability"
	"github.com/jntm/fundtheme/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request interceptor: every route below sees the attached principal,
	// and the access policy runs before routing
	r.Use(deps.AuthMiddleware.Authenticate)
	r.Use(deps.AuthMiddleware.Authorize)

	health := handlers.NewHealthHandler(databaseChecker(deps), cachePinger(deps), deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.UserService, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.UserService, deps.AuthService, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/actuator/health", health.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/verify", authHandler.HandleVerify)
			r.Get("/me", authHandler.HandleMe)
		})

		// Owner-scoped routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", userHandler.HandleGetUser)
			r.Put("/password", userHandler.HandleChangePassword)
		})

		// Admin routes
		r.Route("/admin/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleListUsers)
			r.Put("/{id}/status", userHandler.HandleUpdateStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}

func databaseChecker(deps *app.Dependencies) handlers.DatabaseChecker {
	if deps.DB == nil {
		return nil
	}
	return deps.DB
}

func cachePinger(deps *app.Dependencies) handlers.Pinger {
	if deps.RedisCache == nil {
		return nil
	}
	return deps.RedisCache
}
