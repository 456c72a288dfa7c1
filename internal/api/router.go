package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dixon2004/audio-transcriber/internal/api/handlers"
	"github.com/dixon2004/audio-transcriber/internal/api/middleware"
	"github.com/dixon2004/audio-transcriber/internal/auth"
	"github.com/dixon2004/audio-transcriber/internal/config"
	"github.com/dixon2004/audio-transcriber/internal/history"
	"github.com/dixon2004/audio-transcriber/internal/media"
	"github.com/dixon2004/audio-transcriber/internal/whisper"
)

func NewRouter(cfg *config.Config, jwtService *auth.JWTService, adminHash string, service *whisper.Service, store *history.Store) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	normalizer := media.NewNormalizer(cfg.WorkDir)
	authHandler := handlers.NewAuthHandler(jwtService, cfg.AdminUsername, adminHash)
	transcribeHandler := handlers.NewTranscribeHandler(service, normalizer, store, cfg.DefaultEngine, cfg.MaxUploadMB)
	historyHandler := handlers.NewHistoryHandler(store)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Auth (public, rate limited)
		r.Group(func(r chi.Router) {
			r.Use(loginLimiter.Handler)
			r.Use(middleware.MaxBodySize(4 * 1024))
			r.Post("/auth/login", authHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			r.Get("/auth/me", authHandler.Me)

			r.Post("/transcribe", transcribeHandler.Transcribe)
			r.Get("/transcribe/engines", transcribeHandler.Engines)

			r.Get("/history", historyHandler.List)
			r.Get("/history/{id}", historyHandler.Get)
		})
	})

	return r
}
