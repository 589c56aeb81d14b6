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

	"github.com/use-agent/shelfscan/api"
	"github.com/use-agent/shelfscan/api/handler"
	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/scraper"
	"github.com/use-agent/shelfscan/screenshot"
	"github.com/use-agent/shelfscan/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))
	slog.Info("shelfscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"allowed_domains", cfg.Domains.Allowed,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.Tokens) == 0 {
		slog.Warn("auth enabled but SHELFSCAN_API_TOKENS is empty; protected endpoints are open")
	}

	// ── 3. Fetch stack ──────────────────────────────────────────────
	stack, err := scraper.Build(cfg)
	if err != nil {
		slog.Error("failed to initialise fetch stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	// ── 4. Cache, webhooks, metrics, batch store ────────────────────
	var responses handler.ResponseCache
	if cfg.Cache.RedisAddr != "" {
		client, err := cache.Dial(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword)
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			rc := cache.NewRedis(client)
			defer rc.Close()
			responses = rc
			slog.Info("redis response cache enabled", "addr", cfg.Cache.RedisAddr)
		}
	}
	if responses == nil {
		mc := cache.New(cfg.Cache.MaxEntries)
		defer mc.Stop()
		responses = mc
	}
	notifier := webhook.NewNotifier()
	m := metrics.New()
	if stack.Browser != nil {
		m.WatchBrowser(stack.Browser.Stats)
	}
	batches := handler.NewBatchStore()
	defer batches.Stop()

	svc := &handler.Service{
		Extractor:        stack.Scraper(),
		Cache:            responses,
		Notifier:         notifier,
		Metrics:          m,
		AllowedDomains:   cfg.Domains.Allowed,
		Retention:        cfg.Screenshot.Retention,
		BatchConcurrency: cfg.Browser.MaxSessions,
	}
	if stack.Store != nil {
		svc.Store = stack.Store
		if sched := cfg.Screenshot.CleanupSchedule; sched != "" && sched != "off" {
			janitor, err := screenshot.NewJanitor(stack.Store, sched, cfg.Screenshot.Retention)
			if err != nil {
				slog.Error("failed to schedule screenshot cleanup", "error", err)
				os.Exit(1)
			}
			janitor.Start()
			defer janitor.Stop()
		}
	}
	deps := api.Deps{
		Config:    cfg,
		Service:   svc,
		Batches:   batches,
		Metrics:   m,
		StartTime: time.Now(),
	}
	if stack.Browser != nil {
		deps.Browser = stack.Browser
	}

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight extractions can take a full request timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.RequestTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	if err := notifier.WaitContext(ctx); err != nil {
		slog.Warn("pending webhook deliveries abandoned", "error", err)
	}

	slog.Info("shelfscan stopped")
}
