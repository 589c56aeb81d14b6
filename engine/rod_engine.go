package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/models"
	"github.com/ysmood/gson"
	"golang.org/x/sync/semaphore"
)

var _ Engine = (*RodEngine)(nil)

// userAgents is the pool a rendered session picks from.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

const (
	viewportWidth  = 1366
	viewportHeight = 768
	frameTimeout   = 5 * time.Second
)

// RodEngine renders pages in a headless Chromium. Every Fetch launches its
// own browser process and tears it down before returning; sessions are
// never shared between requests. A semaphore caps how many run at once.
type RodEngine struct {
	cfg    config.BrowserConfig
	sem    *semaphore.Weighted
	max    int
	active atomic.Int32
}

// NewRodEngine creates a RodEngine. No browser is started until Fetch.
func NewRodEngine(cfg config.BrowserConfig) *RodEngine {
	n := cfg.MaxSessions
	if n <= 0 {
		n = 1
	}
	return &RodEngine{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(n)),
		max: n,
	}
}

func (e *RodEngine) Name() string { return ModeRendered }

// Stats reports the session cap and how many sessions are live.
func (e *RodEngine) Stats() models.BrowserStats {
	return models.BrowserStats{
		MaxSessions:    e.max,
		ActiveSessions: int(e.active.Load()),
	}
}

// session is one disposable browser process.
type session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// close tears the browser down. It is always deferred right after a
// successful launch.
func (s *session) close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("browser close failed, killing process", "error", err)
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}

func (e *RodEngine) launch() (*session, error) {
	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox).
		Leakless(true)

	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.cfg.Proxy != "" {
		l = l.Proxy(e.cfg.Proxy)
	}

	// ── Anti-automation flags ──────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", viewportWidth, viewportHeight))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeRender, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeRender, "failed to connect to browser", err)
	}
	return &session{launcher: l, browser: browser}, nil
}

// Fetch renders req.URL in a fresh browser.
//
// Lifecycle:
//
//  1. Acquire a session slot
//  2. Launch browser        (DEFER: close + kill)
//  3. Open page             (DEFER: close)
//  4. Stealth, UA, headers  (before navigation)
//  5. Request blocking      (before navigation)
//  6. Navigate + wait for DOMContentLoaded, bounded by PageLoadTimeout
//  7. Settle delay
//  8. Read status, DOM, text length, final URL
//  9. Read iframe bodies
//  10. Screenshots (optional, best-effort)
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	start := time.Now()

	// ── 1. Session slot ─────────────────────────────────────────────
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeRender, "no browser session available", err)
	}
	defer e.sem.Release(1)
	e.active.Add(1)
	defer e.active.Add(-1)

	// ── 2. Launch ───────────────────────────────────────────────────
	sess, err := e.launch()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	// ── 3. Page ─────────────────────────────────────────────────────
	page, err := sess.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeRender, "failed to open page", err)
	}
	defer func() { _ = page.Close() }()

	// ── 4. Stealth + identity ───────────────────────────────────────
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	ua := userAgents[rand.IntN(len(userAgents))]
	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: acceptLanguage,
	})
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	})

	headers := map[string]string{}
	if ref := siteRoot(req.URL); ref != "" {
		headers["Referer"] = ref
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	// ── 5. Request blocking ─────────────────────────────────────────
	if router := setupHijack(page, e.cfg.BlockAds); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Navigate, bounded by the page-load timeout ───────────────
	loadCtx, cancelLoad := context.WithTimeout(ctx, e.cfg.PageLoadTimeout)
	defer cancelLoad()
	lp := page.Context(loadCtx)

	// The waiter must exist before Navigate or the event can be missed.
	waitLoaded := lp.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := lp.Navigate(req.URL); err != nil {
		return nil, renderError(err, "navigation failed")
	}
	waitLoaded()
	if err := loadCtx.Err(); err != nil {
		return nil, renderError(err, fmt.Sprintf("page did not load within %s", e.cfg.PageLoadTimeout))
	}

	// ── 7. Settle ───────────────────────────────────────────────────
	if err := pause(ctx, e.cfg.SettleDelay); err != nil {
		return nil, renderError(err, "interrupted while page settled")
	}

	p := page.Context(ctx)

	// ── 8. Read the rendered document ───────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, renderError(err, "failed to read rendered DOM")
	}
	res := &FetchResult{
		HTML:        rawHTML,
		ContentType: "text/html; charset=utf-8",
		StatusCode:  evalInt(p, jsNavigationStatus),
		FinalURL:    evalString(p, `() => window.location.href`),
		Mode:        ModeRendered,
		ByteLength:  len(rawHTML),
		TextLength:  evalInt(p, `() => document.body ? document.body.innerText.length : 0`),
	}
	if res.FinalURL == "" {
		res.FinalURL = req.URL
	}

	// ── 9. Frames ───────────────────────────────────────────────────
	res.Frames, res.Warnings = readFrames(ctx, p)

	// ── 10. Screenshots ─────────────────────────────────────────────
	if req.CaptureScreenshots {
		shots, warnings := captureScreenshots(ctx, p, e.cfg.ScrollSettle)
		res.Screenshots = shots
		res.Warnings = append(res.Warnings, warnings...)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

const jsNavigationStatus = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func evalInt(p *rod.Page, js string) int {
	res, err := p.Eval(js)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func renderError(err error, msg string) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewScrapeError(models.ErrCodeRender, msg+" (timed out)", err)
	}
	return models.NewScrapeError(models.ErrCodeRender, msg, err)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
