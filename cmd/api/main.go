package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/affectrelay/internal/analyzer"
	"github.com/nikhilbhutani/affectrelay/internal/api"
	"github.com/nikhilbhutani/affectrelay/internal/cache"
	"github.com/nikhilbhutani/affectrelay/internal/config"
	"github.com/nikhilbhutani/affectrelay/internal/hume"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
	"github.com/nikhilbhutani/affectrelay/internal/multimodal/tts"
	"github.com/nikhilbhutani/affectrelay/internal/relay"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Redis connection (optional, backs the speech cache)
	var rdb *redis.Client
	opts := relay.Options{CacheTTL: cfg.Redis.CacheTTL}
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, speech cache will miss", "error", err)
		}
		opts.Cache = cache.NewCache(rdb)
	}

	// Analysis pipelines
	jobs := inference.NewOrchestrator(hume.NewClient(hume.Config{
		APIKey:  cfg.Hume.APIKey,
		BaseURL: cfg.Hume.BaseURL,
		Timeout: cfg.Hume.Timeout,
	}))
	var local *inference.Orchestrator
	if cfg.Analysis.LocalAnalyzerURL != "" {
		local = inference.NewSyncOrchestrator(analyzer.NewClient(cfg.Analysis.LocalAnalyzerURL, cfg.Analysis.LocalAnalyzerWait))
	}
	opts.Text = pipeline(cfg.Analysis, cfg.Analysis.TextMode, jobs, local)
	opts.Audio = pipeline(cfg.Analysis, cfg.Analysis.AudioMode, jobs, local)

	// Speech synthesis
	opts.Speech, err = tts.NewProvider(cfg.TTS, cfg.Hume)
	if err != nil {
		slog.Error("failed to create tts provider", "error", err)
		os.Exit(1)
	}

	svc := relay.NewService(opts)

	// Setup router
	router := api.NewRouter(svc, rdb, cfg.Server)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting affect relay",
			"addr", cfg.Addr(),
			"text_mode", cfg.Analysis.TextMode,
			"audio_mode", cfg.Analysis.AudioMode,
			"tts", opts.Speech.Name(),
			"cache", opts.Cache != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// pipeline picks the orchestrator for a modality. Sync mode needs the local
// analyzer; config validation guarantees it is set.
func pipeline(cfg config.AnalysisConfig, mode inference.Mode, jobs, local *inference.Orchestrator) relay.Pipeline {
	polling := inference.PollingConfig{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Mode:        mode,
	}
	if mode == inference.ModeSync && local != nil {
		return relay.Pipeline{Runner: local, Polling: polling}
	}
	return relay.Pipeline{Runner: jobs, Polling: polling}
}
