// Command translateq runs the PDF translation orchestrator: a durable task
// engine over a remote translation service plus the localhost HTTP control
// surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tbellam/translateq/internal/api"
	"github.com/tbellam/translateq/internal/config"
	"github.com/tbellam/translateq/internal/events"
	"github.com/tbellam/translateq/internal/platform/logger"
	"github.com/tbellam/translateq/internal/platform/sqlite"
	"github.com/tbellam/translateq/internal/task"
	"github.com/tbellam/translateq/internal/translator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_path", cfg.Database.Path)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	taskStore := sqlite.NewTaskStore(db)
	historyStore := sqlite.NewHistoryStore(db)
	itemStore := sqlite.NewItemStore(db, cfg.Database.FilesDir)

	emitter := events.NewEmitter(log)
	emitter.RegisterHandler(events.HandlerFunc(func(context.Context) error {
		log.Debug("task list changed")
		return nil
	}))

	client := translator.NewHTTPClient(translator.Config{
		BaseURL:        cfg.Translator.BaseURL,
		AuthKey:        cfg.Translator.AuthKey,
		RequestTimeout: cfg.Translator.RequestTimeout,
		RetryDelay:     cfg.Translator.RetryDelay,
	}, log)

	registry := task.NewRegistry(taskStore, historyStore, itemStore, emitter, log)
	builder := task.NewBuilder(itemStore, registry, task.JobDefaults{
		TargetLanguage:       cfg.Defaults.TargetLanguage,
		TranslateModel:       cfg.Defaults.TranslateModel,
		TranslateMode:        cfg.Defaults.TranslateMode,
		EnhanceCompatibility: cfg.Defaults.EnhanceCompatibility,
	}, log)
	finalizer := task.NewResultFinalizer(client, itemStore, registry, "", log)
	monitor := task.NewJobMonitor(registry, client, finalizer, task.MonitorConfig{
		PollInterval: cfg.Translator.PollInterval,
		BatchSize:    cfg.Translator.BatchSize,
	}, log)
	processor := task.NewQueueProcessor(registry, client, monitor, log)
	service := task.NewService(builder, registry, processor, monitor, log)

	ctx := context.Background()
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task service: %w", err)
	}

	router := api.NewRouter(service, itemStore, log)
	return serve(ctx, cfg.Server.Port, router, service, log)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts the server and
// the task engine down gracefully.
func serve(ctx context.Context, port int, router http.Handler, service *task.Service, log *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			cancelServer()
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutting down...")
	case <-serverCtx.Done():
		log.Info("server context canceled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	service.Stop(shutdownCtx)
	log.Info("shutdown completed")
	return nil
}
