// Command feedwatchd serves change-record feeds.
//
// Usage:
//
//	feedwatchd -config feedwatch.yaml
//	feedwatchd -listen :8080 -db data/feedwatch.db
//
// Set OPENAI_API_KEY to enable summary enrichment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/feedwatch/dbopen"
	"github.com/hazyhaar/feedwatch/gazette"
	"github.com/hazyhaar/feedwatch/observability"
	"github.com/hazyhaar/feedwatch/shield"
	"github.com/hazyhaar/feedwatch/summarize"
)

func main() {
	configPath := flag.String("config", "", "path to feedwatch.yaml config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "database path (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *listen, *dbPath); err != nil {
		logger.Error("feedwatchd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, listen, dbPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eventsDB, err := dbopen.Open(cfg.EventsDBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return fmt.Errorf("open events database: %w", err)
	}
	defer eventsDB.Close()
	events := observability.NewEventLogger(eventsDB)

	gen := summarize.NewOpenAI(os.Getenv("OPENAI_API_KEY"), cfg.OpenAIModel)
	if !gen.Available() {
		logger.Warn("feedwatchd: OPENAI_API_KEY not set, enrichment disabled")
	}

	svc, err := gazette.New(db, gen, &cfg.Gazette, logger,
		gazette.WithEventLogger(events))
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer svc.Close()

	svc.Start(ctx)

	r := chi.NewRouter()
	r.Use(shield.HeadToGet)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(cfg.MaxBodyBytes))
	r.Use(shield.TraceID)
	r.Mount("/", svc.Routes())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("feedwatchd: listening", "addr", cfg.Listen, "db", cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("feedwatchd: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
