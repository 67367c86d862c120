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
	"strings"
	"syscall"

	"github.com/ButyrinIA/postboard/internal/config"
	"github.com/ButyrinIA/postboard/internal/posts"
	"github.com/ButyrinIA/postboard/internal/server"
	"github.com/ButyrinIA/postboard/internal/storage"
	"github.com/ButyrinIA/postboard/internal/storage/memory"
	"github.com/ButyrinIA/postboard/internal/storage/postgres"
	"github.com/ButyrinIA/postboard/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	storageType := flag.String("storage", "", "тип хранилища: memory, postgres или sqlite (по умолчанию из конфигурации)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *storageType != "" {
		cfg.Storage.Type = *storageType
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := server.NewHub(logger)
	svc := posts.NewService(store, logger,
		posts.WithThrottleDelay(cfg.Server.ThrottleDelay),
		posts.WithPublisher(hub),
	)

	if cfg.Dev.SeedOnStart {
		seeded, err := svc.SeedIfEmpty(ctx)
		if err != nil {
			return fmt.Errorf("seed storage: %w", err)
		}
		if seeded {
			logger.Info("storage seeded with sample data")
		}
	}

	srv := server.New(cfg, svc, hub, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		logger.Info("Инициализация хранилища PostgreSQL")
		store, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("не удалось инициализировать PostgreSQL: %w", err)
		}
		return store, nil
	case config.StorageSQLite:
		logger.Info("Инициализация хранилища SQLite", "path", cfg.SQLite.Path)
		store, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("не удалось инициализировать SQLite: %w", err)
		}
		return store, nil
	case config.StorageMemory:
		logger.Info("Инициализация хранилища Memory")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %s", cfg.Storage.Type)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
