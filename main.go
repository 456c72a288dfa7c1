package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dixon2004/audio-transcriber/internal/api"
	"github.com/dixon2004/audio-transcriber/internal/auth"
	"github.com/dixon2004/audio-transcriber/internal/config"
	"github.com/dixon2004/audio-transcriber/internal/history"
	"github.com/dixon2004/audio-transcriber/internal/logging"
	"github.com/dixon2004/audio-transcriber/internal/whisper"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	// Ensure work directory exists
	os.MkdirAll(cfg.WorkDir, 0755)

	// Request history store
	store, err := history.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer store.Close()

	// Transcription engines: initialized once, shared read-only by all requests
	service := whisper.NewService(cfg.WhisperURL, cfg.OpenAIKey)
	if len(service.EngineNames()) == 0 {
		log.Fatal().Msg("no transcription engine configured: set WHISPER_URL or OPENAI_API_KEY")
	}

	// Admin credentials
	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash admin password")
	}
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Create router
	router := api.NewRouter(cfg, jwtService, adminHash, service, store)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().
		Str("addr", addr).
		Str("workDir", cfg.WorkDir).
		Strs("engines", service.EngineNames()).
		Msg("starting server")

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		store.Close()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
