package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecture-notes/pkg/api"
	"lecture-notes/pkg/config"
	"lecture-notes/pkg/executor"
	"lecture-notes/pkg/logger"
	"lecture-notes/pkg/notes"
	"lecture-notes/pkg/observability"
	"lecture-notes/pkg/pipeline"
	"lecture-notes/pkg/storage"
	"lecture-notes/pkg/transcribe"
	"lecture-notes/pkg/watcher"
)

const defaultConfigFile = "config.yaml"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	if err := run(cfg, appLog); err != nil {
		appLog.Error("service stopped with error", "error", err)
		appLog.Sync()
		os.Exit(1)
	}
}

// resolveConfigPath falls back to ./config.yaml only when it exists.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func run(cfg *config.Config, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, appLog, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.AudioDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	audio, err := storage.NewFileAudioStore(cfg.Storage.AudioDir)
	if err != nil {
		return err
	}

	transcriber, err := transcribe.New(cfg.Transcriber, executor.New())
	if err != nil {
		return err
	}
	generator := notes.NewOllamaGenerator(cfg.LLM, &http.Client{})

	manager := pipeline.NewManager(pipeline.Config{
		MaxConcurrentTranscriptions: cfg.Pipeline.MaxConcurrentTranscriptions,
		MaxConcurrentGenerations:    cfg.Pipeline.MaxConcurrentGenerations,
		TranscriptionTimeout:        cfg.Transcriber.Timeout,
		GenerationTimeout:           cfg.LLM.Timeout,
	}, store, audio, transcriber, generator, appLog.With("component", "pipeline"))
	defer manager.Close()

	handlers := api.NewHandlers(manager, appLog.With("component", "api"), cfg.Server.MaxUploadMB<<20)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handlers, cfg.Server.BasePath),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("server starting",
			"address", cfg.Server.Address,
			"base_path", cfg.Server.BasePath,
			"storage", cfg.Storage.Backend,
			"transcriber", cfg.Transcriber.Backend,
			"llm_model", cfg.LLM.ModelName,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	watcherDone := make(chan struct{})
	if cfg.Watcher.Enabled {
		w, err := startWatcher(cfg.Watcher, manager, appLog.With("component", "watcher"))
		if err != nil {
			return err
		}
		defer w.Stop()
		go func() {
			defer close(watcherDone)
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("folder watcher stopped", "error", err)
			}
		}()
	} else {
		close(watcherDone)
	}

	select {
	case <-ctx.Done():
		appLog.Info("shutting down server")
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-watcherDone

	appLog.Info("server exited")
	return nil
}

func openStore(cfg config.StorageConfig) (storage.LectureStore, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		store, err := storage.NewDiskStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open lecture store: %w", err)
		}
		return store, nil
	}
}

func startWatcher(cfg config.WatcherConfig, manager *pipeline.Manager, log *logger.Logger) (watcher.Watcher, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}
	w, err := watcher.New(cfg.Dir, watcher.NewIngestHandler(manager, cfg.ArchiveDir, log), log, cfg.MaxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("start folder watcher: %w", err)
	}
	return w, nil
}
