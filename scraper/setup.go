package scraper

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/engine"
	"github.com/use-agent/shelfscan/screenshot"
)

// Stack is the fetch and storage wiring shared by every entry point.
type Stack struct {
	Dispatcher *engine.Dispatcher

	// Browser is nil when rendering is disabled.
	Browser *engine.RodEngine

	// Store is nil in base64 screenshot mode.
	Store *screenshot.FileStore

	sink   ScreenshotSink
	memory *engine.DomainMemory
	cfg    *config.Config
}

// Build wires the plain engine, the optional rendered engine with its
// domain memory, and the screenshot sink from cfg.
func Build(cfg *config.Config) (*Stack, error) {
	s := &Stack{cfg: cfg}

	plain := engine.NewHTTPEngine(
		engine.WithHTTPTimeout(cfg.Fetch.HTTPTimeout),
		engine.WithProxy(cfg.Browser.Proxy),
	)

	var rendered engine.Engine
	if cfg.Fetch.EnableRendering {
		s.Browser = engine.NewRodEngine(cfg.Browser)
		s.memory = engine.NewDomainMemory(cfg.Fetch.DomainMemoryTTL)
		rendered = s.Browser
	}
	s.Dispatcher = engine.NewDispatcher(plain, rendered, s.memory)

	switch cfg.Screenshot.Mode {
	case "base64":
		s.sink = screenshot.Base64Sink{}
	case "file", "":
		store, err := screenshot.NewFileStore(cfg.Screenshot.Dir, nil)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Store = store
		s.sink = store
	default:
		s.Close()
		return nil, fmt.Errorf("scraper: unknown screenshot mode %q", cfg.Screenshot.Mode)
	}

	slog.Info("fetch stack ready",
		"rendering", cfg.Fetch.EnableRendering,
		"max_browsers", cfg.Browser.MaxSessions,
		"screenshot_mode", cfg.Screenshot.Mode,
	)
	return s, nil
}

// Scraper returns a Scraper that picks the fetch mode per request.
func (s *Stack) Scraper() *Scraper {
	return s.newScraper(s.Dispatcher)
}

// RenderedScraper returns a Scraper that always renders.
func (s *Stack) RenderedScraper() (*Scraper, error) {
	if s.Browser == nil {
		return nil, fmt.Errorf("scraper: rendering is disabled")
	}
	return s.newScraper(s.Browser), nil
}

func (s *Stack) newScraper(fetcher engine.Engine) *Scraper {
	return New(fetcher,
		WithSink(s.sink),
		WithLowContentThreshold(s.cfg.Fetch.LowContentThreshold),
		WithTimeout(s.cfg.Fetch.RequestTimeout),
	)
}

// Close stops background goroutines. Browser sessions need no cleanup:
// each is torn down by the fetch that started it.
func (s *Stack) Close() {
	if s.memory != nil {
		s.memory.Stop()
	}
}
