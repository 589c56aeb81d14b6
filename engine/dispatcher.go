package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/use-agent/shelfscan/models"
)

var _ Engine = (*Dispatcher)(nil)

// Dispatcher picks the fetch mode for a request. Plain comes first; the
// rendered engine is used when screenshots are requested, when the host
// is remembered as script-rendered, or when the plain markup looks like an
// unrendered shell.
type Dispatcher struct {
	plain    Engine
	rendered Engine // nil disables rendering
	memory   *DomainMemory
}

// NewDispatcher wires the two engines. rendered and memory may be nil.
func NewDispatcher(plain, rendered Engine, memory *DomainMemory) *Dispatcher {
	return &Dispatcher{plain: plain, rendered: rendered, memory: memory}
}

func (d *Dispatcher) Name() string { return "auto" }

// Fetch runs at most one plain and one rendered attempt.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	host := extractHost(req.URL)

	// ── 1. Screenshots need a live page ─────────────────────────────
	if req.CaptureScreenshots {
		if d.rendered == nil {
			return nil, models.NewScrapeError(models.ErrCodeRender,
				"screenshots requested but rendering is disabled", nil)
		}
		res, err := d.rendered.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		res.Notes = append([]string{"rendered mode: screenshots requested"}, res.Notes...)
		return res, nil
	}

	// ── 2. Domain memory ────────────────────────────────────────────
	if d.rendered != nil && d.memory != nil && d.memory.Get(host) == ModeRendered {
		slog.Debug("domain memory hit", "host", host, "mode", ModeRendered)
		res, err := d.rendered.Fetch(ctx, req)
		if err == nil {
			res.Notes = append([]string{"rendered mode: host remembered as script-rendered"}, res.Notes...)
			return res, nil
		}
		slog.Info("remembered rendered fetch failed, retrying plain",
			"host", host, "error", err)
		d.memory.Delete(host)
	}

	// ── 3. Plain fetch (single attempt) ─────────────────────────────
	res, err := d.plain.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if d.rendered == nil {
		return res, nil
	}

	// ── 4. Escalate when the markup is an unrendered shell ──────────
	needs, reason := needsRendering(res.HTML)
	if !needs {
		return res, nil
	}
	slog.Info("plain content insufficient, escalating to rendered",
		"url", req.URL, "reason", reason)

	rendered, rerr := d.rendered.Fetch(ctx, req)
	if rerr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("rendered escalation failed (%v), using plain markup", rerr))
		return res, nil
	}
	if d.memory != nil {
		d.memory.Set(host, ModeRendered)
	}
	rendered.Notes = append([]string{"rendered mode: plain markup had " + reason}, rendered.Notes...)
	return rendered, nil
}

// extractHost parses the hostname from a URL string.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
