package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"wedding-rsvp/internal/api"
	"wedding-rsvp/internal/app"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/logging"
)

func main() {
	addr := pflag.String("addr", "", "listen address (overrides HTTP_ADDR)")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup dependencies")
	}
	defer deps.Close()

	handler := api.NewHandler(deps.Store, deps.SummaryCache, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.CORSOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	startServer(server, log)
	waitForShutdown(server, cancel, log)

	log.Info().Msg("Server gracefully stopped")
}

func startServer(server *http.Server, log zerolog.Logger) {
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Unexpected error while starting server")
		}
	}()
}

func waitForShutdown(server *http.Server, cancelApp context.CancelFunc, log zerolog.Logger) {
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Unexpected error while shutting down server")
	}
	cancelApp()
}
