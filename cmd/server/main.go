package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"puntocambio/internal/config"
	"puntocambio/internal/events"
	"puntocambio/internal/infra"
	"puntocambio/internal/repository"
	"puntocambio/internal/router"
	"puntocambio/internal/worker"
	"puntocambio/migrations"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Env)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server exited")
}

// setupLogger keeps zerolog's JSON in production and a console writer elsewhere.
func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func run(cfg *config.Config) error {
	if err := infra.RunMigrations(cfg.DatabaseURL, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeAll(db, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Events published on any replica reach the SSE clients of every replica.
	bus := events.NewBus()
	relay := events.NewRedisBus(rdb, bus)
	go relay.Run(ctx)

	smtpCB := infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg, smtpCB)
	dispatcher := worker.NewDispatcher(rdb)
	workers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, processors(cfg, db, mailer, dispatcher))

	handler, err := router.New(cfg, db, rdb, router.Deps{
		Bus:       bus,
		Publisher: relay,
		Cola:      dispatcher,
		SMTP:      smtpCB,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		// no WriteTimeout: /api/events streams for the whole session
		IdleTimeout: 60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("Punto Cambio backend listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server…")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	stop()
	workers.Wait()
	return nil
}

// processors wires one handler per queue. Without SMTP the close reports are
// still rendered to disk and the email queue has no consumer.
func processors(cfg *config.Config, db *gorm.DB, mailer *infra.Mailer, dispatcher *worker.Dispatcher) map[string]worker.Processor {
	out := map[string]worker.Processor{
		worker.QueueCierre: worker.NewCierreWorker(
			repository.NewCuadreRepository(db),
			repository.NewPuntoRepository(db),
			dispatcher,
			cfg.ReportStoragePath,
			splitEmails(cfg.CierreNotifyEmail),
		),
	}
	if mailer.Enabled() {
		out[worker.QueueEmail] = worker.NewEmailWorker(mailer)
	} else {
		log.Warn().Msg("SMTP_HOST not set: close reports will be generated but not emailed")
	}
	return out
}

func closeAll(db *gorm.DB, rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func splitEmails(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
