package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prostaff/match-ingest/handlers"
	"github.com/prostaff/match-ingest/middleware"
	"github.com/prostaff/match-ingest/services"
)

// SetupRoutes собирает HTTP-поверхность сервиса. Чтение открыто,
// ручные триггеры конвейера и сброс карантина требуют JWT оператора.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	statusHandler *handlers.StatusHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", statusHandler.Health)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/leagues", gameHandler.ListLeagues)
		r.Get("/games", gameHandler.ListGames)
		r.Get("/games/{matchID}/{gameNumber}", gameHandler.GetGame)
		r.Get("/status", statusHandler.Status)

		// Защищённые маршруты только для оператора
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(services.RoleOperator))

			r.Post("/sync", adminHandler.TriggerSync)
			r.Post("/enrich", adminHandler.TriggerEnrich)
			r.Post("/games/{matchID}/{gameNumber}/reset", adminHandler.ResetEnrichment)
		})
	})

	router.Get("/ws/pipeline", webSocketHandler.ServeWs)
}
