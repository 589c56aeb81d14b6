package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/shelfscan/models"
)

// productLandmarks locate the product-info block, most specific first.
var productLandmarks = []string{
	".ui-pdp-container",
	"#ui-pdp-main-container",
	"[class*='product-info']",
	"[class*='product-details']",
	"main",
}

const jsLandmarkOffset = `(selectors) => {
	for (const s of selectors) {
		const el = document.querySelector(s);
		if (el) return Math.round(el.getBoundingClientRect().top + window.scrollY);
	}
	return -1;
}`

const jsPageHeight = `() => Math.max(
	document.body ? document.body.scrollHeight : 0,
	document.documentElement ? document.documentElement.scrollHeight : 0)`

var pngCapture = &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}

// captureScreenshots takes the full page first, then scrolls to each
// labelled offset and captures the viewport. Each capture stands alone: a
// failure becomes a warning and the label is left out.
func captureScreenshots(ctx context.Context, p *rod.Page, settle time.Duration) (shots []Screenshot, warnings []string) {
	add := func(label string, png []byte, err error) {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("screenshot %s failed: %v", label, err))
			return
		}
		shots = append(shots, Screenshot{Label: label, PNG: png})
	}

	png, err := p.Screenshot(true, pngCapture)
	add(models.ShotFullPage, png, err)

	height := evalInt(p, jsPageHeight)
	if height <= 0 {
		warnings = append(warnings, "page height unknown, skipping scrolled screenshots")
		return shots, warnings
	}

	landmark := -1
	if res, err := p.Eval(jsLandmarkOffset, productLandmarks); err == nil {
		landmark = res.Value.Int()
	}

	targets := []struct {
		label  string
		offset int
	}{
		{models.ShotProductSection, landmark},
		{models.ShotSpecifications, height * 30 / 100},
		{models.ShotDescription, height * 60 / 100},
		{models.ShotFooter, height},
	}

	for _, t := range targets {
		if t.offset < 0 {
			warnings = append(warnings, fmt.Sprintf("screenshot %s skipped: landmark not found", t.label))
			continue
		}
		if _, err := p.Eval(`(y) => window.scrollTo(0, y)`, t.offset); err != nil {
			add(t.label, nil, err)
			continue
		}
		if err := pause(ctx, settle); err != nil {
			add(t.label, nil, err)
			return shots, warnings
		}
		png, err := p.Screenshot(false, pngCapture)
		add(t.label, png, err)
	}
	return shots, warnings
}
