package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/scraper"
	"github.com/use-agent/shelfscan/screenshot"
	"github.com/use-agent/shelfscan/webhook"
)

// ScreenshotPathPrefix is where file-mode screenshots are served.
const ScreenshotPathPrefix = "/api/v1/screenshots/"

// ProductExtractor runs one extraction. *scraper.Scraper implements it.
type ProductExtractor interface {
	Extract(ctx context.Context, rawURL string, captureScreenshots bool) *scraper.Result
}

// BrowserStatser reports rendered-session usage.
type BrowserStatser interface {
	Stats() models.BrowserStats
}

// ResponseCache stores successful responses by cache.Key.
type ResponseCache interface {
	Get(key string, maxAgeMs int) (*models.ScrapeResponse, bool)
	Set(key string, resp *models.ScrapeResponse)
}

// ScreenshotStore is the file-mode screenshot storage.
type ScreenshotStore interface {
	List() ([]screenshot.Info, error)
	Path(name string) (string, error)
	Count() int
	Cleanup(maxAge time.Duration) (int, error)
}

// Service holds what the extraction handlers share. Optional fields may
// be nil.
type Service struct {
	Extractor ProductExtractor
	Cache     ResponseCache
	Notifier  *webhook.Notifier
	Metrics   *metrics.Metrics
	// Store is nil in base64 mode.
	Store ScreenshotStore

	// AllowedDomains are host suffixes; empty allows any host.
	AllowedDomains []string
	Retention      time.Duration
	// BatchConcurrency caps parallel extractions per batch job.
	BatchConcurrency int

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// run extracts one URL and builds the response envelope. Fetch failures
// come back as Success=false responses, never as errors.
func (s *Service) run(ctx context.Context, rawURL string, captureScreenshots bool) *models.ScrapeResponse {
	start := time.Now()
	res := s.Extractor.Extract(ctx, rawURL, captureScreenshots)

	if s.Store != nil {
		rewriteScreenshotPaths(res.Record)
	}

	resp := &models.ScrapeResponse{
		Success:   res.Success,
		Data:      res.Record,
		Timestamp: s.timestamp(),
		URL:       rawURL,
		FetchMode: res.Mode,
		Timing: &models.TimingInfo{
			TotalMs:      time.Since(start).Milliseconds(),
			FetchMs:      res.FetchDuration.Milliseconds(),
			ExtractionMs: res.ExtractDuration.Milliseconds(),
		},
	}
	if res.Success {
		resp.Message = fmt.Sprintf("product data extracted (%d/5 fields)", res.Record.FilledFields())
	} else {
		resp.Message = "extraction failed: " + res.Err.Message
		resp.Error = res.Err.ToDetail()
	}

	s.Metrics.ObserveExtraction(resp, time.Since(start))
	slog.Info("extraction finished",
		"url", rawURL,
		"success", resp.Success,
		"mode", res.Mode,
		"total_ms", resp.Timing.TotalMs,
	)
	return resp
}

// rewriteScreenshotPaths turns stored file paths into download URLs.
func rewriteScreenshotPaths(rec *models.ProductRecord) {
	for label, path := range rec.Screenshots {
		if strings.HasPrefix(path, "data:") {
			continue
		}
		rec.Screenshots[label] = ScreenshotPathPrefix + filepath.Base(path)
	}
}

// cleanupScreenshots removes expired files. Meant to run in its own
// goroutine after a response is written.
func (s *Service) cleanupScreenshots() {
	if s.Store == nil || s.Retention <= 0 {
		return
	}
	removed, err := s.Store.Cleanup(s.Retention)
	if err != nil {
		slog.Warn("screenshot cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("removed expired screenshots", "count", removed)
	}
}

// notify delivers resp as a webhook event when a URL was given.
func (s *Service) notify(webhookURL, secret string, resp *models.ScrapeResponse) {
	if s.Notifier == nil || webhookURL == "" {
		return
	}
	eventType := webhook.EventExtracted
	if !resp.Success {
		eventType = webhook.EventFailed
	}
	s.Notifier.DeliverAsync(webhookURL, secret, &webhook.Event{
		Type:      eventType,
		ID:        uuid.NewString(),
		URL:       resp.URL,
		Timestamp: s.now().Unix(),
		Data:      resp,
	})
}

var errDomainNotAllowed = errors.New("domain not allowed")

// validateURL checks that raw is an absolute http(s) URL whose host is, or
// is a subdomain of, one of allowed.
func validateURL(raw string, allowed []string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url: scheme must be http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid url: missing host")
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimPrefix(d, "."))
		if host == d || strings.HasSuffix(host, "."+d) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", errDomainNotAllowed, host, strings.Join(allowed, ", "))
}
