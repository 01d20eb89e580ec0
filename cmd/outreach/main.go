package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_scheduler/internal/infra/config"
	idb "outreach_scheduler/internal/infra/database"
	"outreach_scheduler/internal/infra/httpapi"
	"outreach_scheduler/internal/infra/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	shutdownTimeout = 15 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not load application configuration: %v\n", err)
		return exitFailure
	}
	logger.Init(cfg)
	log := logger.Component("main")
	log.WithFields(logrus.Fields{
		"command":       command,
		"environment":   cfg.Environment,
		"cache_backend": cfg.CacheBackend,
		"event_backend": cfg.EventBackend,
	}).Info("Outreach scheduler starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "migrate":
		err = migrate(ctx, cfg)
	case "run":
		err = runOnce(ctx, cfg, log)
	case "serve":
		err = serve(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, expected one of: serve, run, migrate\n", command)
		return exitUsage
	}
	if err != nil {
		log.WithError(err).Error("Command failed")
		return exitFailure
	}
	return exitOK
}

func migrate(ctx context.Context, cfg *config.AppConfig) error {
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL, idb.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		return err
	}
	logger.Component("main").Info("Schema is up to date")
	return nil
}

// runOnce performs a single pass. Per-unit failures are reported but do not fail the command.
func runOnce(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) error {
	a, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.SchedulerRunTimeout)
	defer cancel()
	res, err := a.cron.RunNow(ctx)
	if err != nil {
		return fmt.Errorf("outreach pass aborted: %w", err)
	}
	if unitErr := res.Err(); unitErr != nil {
		log.WithError(unitErr).Warn("Outreach pass finished with failures")
	}
	return nil
}

func serve(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) error {
	a, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handlers := httpapi.NewHandlers(a.messages, a.projects, a.replies, a.health, a.spinner, logger.Component("http"))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handlers, httpapi.RouterConfig{}, logger.Component("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := a.cron.Start(); err != nil {
		return fmt.Errorf("error starting outreach scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.bot != nil {
		g.Go(func() error {
			log.Info("Telegram bot polling started")
			a.bot.Start()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down application...")

		a.cron.Stop()
		if a.bot != nil {
			a.bot.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("Application shut down gracefully.")
	return err
}
