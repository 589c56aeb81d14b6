package engine

import (
	"context"
	"time"
)

// Fetch modes.
const (
	ModePlain    = "plain"
	ModeRendered = "rendered"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("plain", "rendered", "auto").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL string

	// Headers are added to (and override) the default browser headers.
	Headers map[string]string

	// CaptureScreenshots requires a rendered session.
	CaptureScreenshots bool
}

// Screenshot is one captured PNG image.
type Screenshot struct {
	Label string
	PNG   []byte
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML        string
	ContentType string
	StatusCode  int
	FinalURL    string

	// Mode is ModePlain or ModeRendered.
	Mode string

	// ByteLength is the size of the body as received.
	ByteLength int

	// TextLength is the browser-reported visible text length. Zero for
	// plain fetches, where the caller measures text itself.
	TextLength int

	// Frames holds the body text of each readable iframe.
	Frames []string

	Screenshots []Screenshot

	// Notes and Warnings are diagnostic lines for the caller's trace.
	Notes    []string
	Warnings []string

	Elapsed time.Duration
}
