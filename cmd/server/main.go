package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docmark/internal/analyze"
	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/api"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/dgallion1/docmark/internal/render"
	"github.com/dgallion1/docmark/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pattern rules: built-in bank unless a rules file overrides it.
	rules := analyze.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := analyze.LoadRules(cfg.RulesFile)
		if err != nil {
			log.Error("failed to load rules file", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
		rules = loaded
	}
	patterns, err := analyze.NewPatternAnalyzer(rules)
	if err != nil {
		log.Error("invalid pattern rules", "error", err)
		os.Exit(1)
	}

	// Vision analysis needs both an API key and a working rasterizer.
	// Missing either degrades the service to pattern-only at startup.
	var vision pipeline.VisionAnalyzer
	var renderer pipeline.Rasterizer
	if cfg.VisionEnabled {
		r := render.NewRenderer(cfg.RenderDPI)
		if err := r.Probe(); err != nil {
			log.Warn("rasterizer unavailable, running pattern-only", "error", err)
		} else {
			renderer = r
			vision = analyze.NewVisionClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		}
	}

	writer, err := annotate.NewWriter(annotate.Options{
		FillAlpha: cfg.HighlightAlpha,
		Border:    cfg.HighlightBorder,
	})
	if err != nil {
		log.Error("invalid annotation options", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Error("failed to open store", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, patterns, vision, renderer, writer, db, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := db.Close(); err != nil {
			log.Error("store close failed", "error", err)
		}
	}()

	log.Info("starting docmark", "port", cfg.Port, "vision", vision != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
