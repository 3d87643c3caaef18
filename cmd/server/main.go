package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kodevali/the300/internal/api"
	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/service"
	"github.com/kodevali/the300/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting the300 server...")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repos := repository.New(db)
	m := metrics.New()
	services := service.NewServices(repos, cfg, m, service.NewLogNotifier(log), log)

	go services.Job.StartProcessor(context.Background())
	log.Info().Msg("Background job processor started")

	router := api.NewRouter(services, cfg, m, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// no new edits can arrive once the server is down
	if err := services.Selection.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush pending selection edits")
	}

	services.Job.StopProcessor()

	log.Info().Msg("Server exited gracefully")
}
