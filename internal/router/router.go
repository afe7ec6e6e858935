package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"nutrichat-backend/internal/handlers"
	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	mealHandler *handlers.MealHandler,
	catalogHandler *handlers.CatalogHandler,
	preferenceHandler *handlers.PreferenceHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/stream", chatHandler.Stream)
			r.Get("/messages", chatHandler.Messages)
		})

		// ──── Meal Routes ────
		r.Route("/meals", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", mealHandler.List)
			r.Post("/", mealHandler.Create)
			r.Put("/{id}", mealHandler.Update)
			r.Delete("/{id}", mealHandler.Delete)
			r.Post("/{id}/eaten", mealHandler.MarkEaten)
		})

		// ──── Catalog Routes ────
		r.Route("/catalog", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", catalogHandler.List)
			r.Get("/{id}", catalogHandler.Get)
		})

		// ──── Preference Routes ────
		r.Route("/preferences", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", preferenceHandler.List)
			r.Delete("/{id}", preferenceHandler.Delete)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/totals", dashboardHandler.DayTotals)
		})
	})

	// WebSocket endpoint (authenticates via query token)
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
