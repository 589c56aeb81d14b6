package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// withFrame enters the document of an <iframe> element, runs fn against it
// and always releases the frame context on return, panics included. The
// outer page is never modified, so there is nothing to switch back to.
func withFrame(ctx context.Context, el *rod.Element, limit time.Duration, fn func(frame *rod.Page) error) (err error) {
	fctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame: %v", r)
		}
	}()

	frame, err := el.Context(fctx).Frame()
	if err != nil {
		return fmt.Errorf("frame: enter: %w", err)
	}
	return fn(frame.Context(fctx))
}

// readFrames returns the trimmed body text of every readable iframe, in
// document order. Unreadable frames (cross-origin, detached) become
// warnings.
func readFrames(ctx context.Context, p *rod.Page) (texts, warnings []string) {
	iframes, err := p.Elements("iframe")
	if err != nil {
		return nil, []string{fmt.Sprintf("could not list iframes: %v", err)}
	}

	for i, el := range iframes {
		err := withFrame(ctx, el, frameTimeout, func(frame *rod.Page) error {
			text := evalString(frame, `() => document.body ? document.body.innerText : ""`)
			if text = strings.TrimSpace(text); text != "" {
				texts = append(texts, text)
			}
			return nil
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("iframe %d unreadable: %v", i, err))
		}
	}
	return texts, warnings
}
