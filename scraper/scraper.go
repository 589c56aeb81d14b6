// Package scraper runs one product extraction end to end: fetch, parse,
// field cascades and screenshot storage.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/shelfscan/engine"
	"github.com/use-agent/shelfscan/extractor"
	"github.com/use-agent/shelfscan/models"
)

const defaultLowContent = 1000

// Scraper is safe for concurrent use; every Extract call owns its own
// record, trace and document.
type Scraper struct {
	fetcher    engine.Engine
	extractor  *extractor.Extractor
	sink       ScreenshotSink
	now        func() time.Time
	lowContent int
	timeout    time.Duration
}

// ScreenshotSink stores a capture and returns the reference written into
// the record. screenshot.FileStore and screenshot.Base64Sink satisfy it.
type ScreenshotSink interface {
	Save(label string, png []byte) (string, error)
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClock sets the clock used for trace timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSink sets where screenshots go. Without a sink, captures are
// dropped with a trace warning.
func WithSink(sink ScreenshotSink) Option {
	return func(s *Scraper) { s.sink = sink }
}

// WithLowContentThreshold sets the text length below which the trace
// warns about a possible block page.
func WithLowContentThreshold(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.lowContent = n
		}
	}
}

// WithTimeout bounds a whole Extract call. Zero means no extra bound
// beyond the engines' own timeouts.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.timeout = d }
}

// New creates a Scraper fetching through fetcher.
func New(fetcher engine.Engine, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:    fetcher,
		extractor:  extractor.New(),
		now:        time.Now,
		lowContent: defaultLowContent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract fetches rawURL and fills a ProductRecord. It never returns nil
// and never panics on page content: a fetch failure yields Success=false
// with a sentinel record and the trace so far; field misses only leave
// sentinels behind.
func (s *Scraper) Extract(ctx context.Context, rawURL string, captureScreenshots bool) *Result {
	tr := extractor.NewTrace(s.now)
	rec := models.NewProductRecord()
	res := &Result{Record: rec}
	defer func() { rec.DiagnosticTrace = tr.Lines() }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tr.Info("extraction started: %s", rawURL)

	// ── 1. Fetch ────────────────────────────────────────────────────
	fetchStart := time.Now()
	fr, err := s.fetcher.Fetch(ctx, &engine.FetchRequest{
		URL:                rawURL,
		CaptureScreenshots: captureScreenshots,
	})
	res.FetchDuration = time.Since(fetchStart)
	if err != nil {
		se := categorizeError(ctx, err)
		tr.Error("fetch failed: %s: %s", se.Code, se.Message)
		slog.Warn("fetch failed", "url", rawURL, "code", se.Code, "error", err)
		res.Err = se
		return res
	}
	res.Mode = fr.Mode
	res.FinalURL = fr.FinalURL

	tr.Info("fetched in %s mode: HTTP %d, %d bytes", fr.Mode, fr.StatusCode, fr.ByteLength)
	for _, n := range fr.Notes {
		tr.Info("%s", n)
	}
	for _, w := range fr.Warnings {
		tr.Warn("%s", w)
	}

	// ── 2. Parse ────────────────────────────────────────────────────
	doc, err := extractor.Parse(fr.HTML, fr.FinalURL, extractor.Mode(fr.Mode))
	if err != nil {
		res.Err = models.NewScrapeError(models.ErrCodeInternal, "could not parse page", err)
		tr.Error("parse failed: %v", err)
		return res
	}
	if fr.TextLength > 0 {
		doc.TextLength = fr.TextLength
	}
	doc.Frames = fr.Frames

	tr.Info("text length: %d chars", doc.TextLength)
	if doc.TextLength < s.lowContent {
		tr.Warn("content suspiciously small — possible block (%d chars)", doc.TextLength)
	}

	// ── 3. Fields ───────────────────────────────────────────────────
	extractStart := time.Now()
	s.extractor.Extract(doc, rec, tr)
	res.ExtractDuration = time.Since(extractStart)

	// ── 4. Screenshots ──────────────────────────────────────────────
	if captureScreenshots {
		s.storeScreenshots(fr.Screenshots, rec, tr)
	}

	tr.Info("extraction finished: %d/5 fields filled", rec.FilledFields())
	res.Success = true
	return res
}

func (s *Scraper) storeScreenshots(shots []engine.Screenshot, rec *models.ProductRecord, tr *extractor.Trace) {
	if s.sink == nil {
		tr.Warn("screenshots captured but no storage configured")
		return
	}
	if len(shots) == 0 {
		tr.Warn("no screenshots captured")
		return
	}
	for _, shot := range shots {
		ref, err := s.sink.Save(shot.Label, shot.PNG)
		if err != nil {
			tr.Warn("screenshot %s not stored: %v", shot.Label, err)
			continue
		}
		rec.Screenshots[shot.Label] = ref
		tr.Info("screenshot %s stored", shot.Label)
	}
}

// categorizeError maps a fetch error to a ScrapeError. Hitting the
// overall deadline keeps the engine's class (render or network) and says
// so in the message.
func categorizeError(ctx context.Context, err error) *models.ScrapeError {
	var se *models.ScrapeError
	isScrape := errors.As(err, &se)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code := models.ErrCodeNetwork
		if isScrape && se.Code == models.ErrCodeRender {
			code = models.ErrCodeRender
		}
		return models.NewScrapeError(code, "extraction did not finish in time (deadline)", err)
	}
	if isScrape {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewScrapeError(models.ErrCodeNetwork, "request timed out", err)
	}
	return models.NewScrapeError(models.ErrCodeNetwork, "request failed", err)
}
