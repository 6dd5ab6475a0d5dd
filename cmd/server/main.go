package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/api"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/bookmark"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/submission"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/explorer.yaml", "Path to explorer YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	// ── Collaborators ─────────────────────────────────────────────────────────
	cat := catalogue.NewHTTPCatalogue(cfg.Catalogue.BaseURL, cfg.Catalogue.APIKey, millis(cfg.Catalogue.TimeoutMs))
	sde := catalogue.NewHTTPSDE(cfg.SDE.BaseURL, cfg.SDE.APIKey, millis(cfg.SDE.TimeoutMs))

	// ── Query builder ─────────────────────────────────────────────────────────
	builder := querybuilder.NewBuilder(cat, cfg.QueryBuilder)
	queries := querybuilder.NewQueryStore(cat, func() config.ProfileRef {
		return builder.Config().QueryProfile
	})

	// ── Submission pipeline ───────────────────────────────────────────────────
	pipeline, err := buildPipeline(cat, sde, cfg.Submission)
	if err != nil {
		slog.Error("failed to build submission pipeline", "err", err)
		os.Exit(1)
	}
	slog.Info("submission pipeline built", "steps", strings.Join(pipeline.Steps(), ","))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submissions := submission.NewService(ctx, pipeline, cfg.Submission)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.ExplorerConfig) {
		newPipeline, err := buildPipeline(cat, sde, newCfg.Submission)
		if err != nil {
			slog.Warn("hot-reload skipped: submission pipeline invalid", "err", err)
			return
		}
		builder.SetConfig(newCfg.QueryBuilder)
		submissions.SetPipeline(newPipeline)
		slog.Info("config hot-reloaded", "version", newCfg.Version, "steps", strings.Join(newPipeline.Steps(), ","))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(api.Deps{
		Loader:      loader,
		Builder:     builder,
		Queries:     queries,
		Bookmarks:   bookmark.NewService(cat),
		Submissions: submissions,
	})
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	submissions.Shutdown()
	cancel()
	slog.Info("goodbye")
}

func buildPipeline(cat *catalogue.HTTPCatalogue, sde *catalogue.HTTPSDE, conf config.SubmissionConf) (*submission.Pipeline, error) {
	reg := submission.NewRegistry()
	submission.RegisterDefaults(reg, cat, sde, conf)
	steps, err := reg.Sequence(conf.Steps)
	if err != nil {
		return nil, err
	}
	return submission.NewPipeline(steps, conf.DefaultErrorMessage), nil
}

func newLogger(conf config.LogConf) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if conf.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
