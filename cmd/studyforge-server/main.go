// Package main provides the StudyForge job server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/studyforge/internal/config"
	"github.com/raphaelgruber/studyforge/internal/db"
	"github.com/raphaelgruber/studyforge/internal/hub"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/llm"
	"github.com/raphaelgruber/studyforge/internal/pipeline"
	"github.com/raphaelgruber/studyforge/internal/server"
)

func main() {
	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("starting studyforge-server", "port", cfg.ServerPort, "provider", cfg.LLMProvider, "model", cfg.LLMModel)

	model, err := llm.NewModel(cfg)
	if err != nil {
		slog.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}

	// Document persistence is optional; jobs themselves are in-memory only.
	var docs *db.Client
	if cfg.PersistDocuments {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		docs, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			cancel()
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := docs.InitSchema(ctx); err != nil {
			cancel()
			slog.Error("failed to initialize schema", "error", err)
			os.Exit(1)
		}
		cancel()
		defer func() {
			if err := docs.Close(context.Background()); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
	} else {
		slog.Info("document persistence disabled")
	}

	store := jobs.NewStore()
	notifications := hub.New()

	opts := pipeline.Options{
		Notifier:       notifications,
		LLMTimeout:     cfg.LLMTimeout,
		ExtractTimeout: cfg.ExtractTimeout,
	}
	if docs != nil {
		opts.Docs = docs
	}
	pl := pipeline.New(store, model, opts)

	var docStore server.Documents
	if docs != nil {
		docStore = docs
	}
	srv := server.New(cfg, store, pl, notifications, docStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
