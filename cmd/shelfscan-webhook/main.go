// Command shelfscan-webhook serves extraction to local workflow tools
// (n8n and similar): no token, CORS for every origin.
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
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/scraper"
	"github.com/use-agent/shelfscan/webhook"
)

func main() {
	cfg := config.Load()
	if os.Getenv("SHELFSCAN_PORT") == "" {
		cfg.Server.Port = 5000
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	stack, err := scraper.Build(cfg)
	if err != nil {
		slog.Error("failed to initialise fetch stack", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	notifier := webhook.NewNotifier()
	svc := &handler.Service{
		Extractor: stack.Scraper(),
		Notifier:  notifier,
		Retention: cfg.Screenshot.Retention,
	}
	if stack.Store != nil {
		svc.Store = stack.Store
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewWebhookRouter(api.Deps{Config: cfg, Service: svc, StartTime: time.Now()}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("webhook server listening",
			"addr", addr,
			"endpoints", []string{"GET /health", "GET /test", "POST /scrape"},
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Fetch.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	}
	if err := notifier.WaitContext(ctx); err != nil {
		slog.Warn("pending webhook deliveries abandoned", "error", err)
	}
	slog.Info("webhook server stopped")
}
