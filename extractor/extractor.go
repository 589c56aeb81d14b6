package extractor

import (
	"log/slog"

	"github.com/use-agent/shelfscan/models"
)

// strategy is one named attempt at filling a field. ok=false means "not
// found here, try the next one".
type strategy[T any] struct {
	name string
	fn   func(*Document) (T, bool)
}

// cascade runs strategies in order and returns the first success. A
// strategy that panics is recorded as a field warning and skipped.
func cascade[T any](field string, doc *Document, tr *Trace, strategies []strategy[T]) (T, bool) {
	for _, s := range strategies {
		v, ok := attempt(field, s, doc, tr)
		if ok {
			tr.Info("%s: matched by %s", field, s.name)
			return v, true
		}
	}
	tr.Info("%s: not found, keeping default", field)
	var zero T
	return zero, false
}

func attempt[T any](field string, s strategy[T], doc *Document, tr *Trace) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			tr.Warn("%s: strategy %s failed: %v (%s)", field, s.name, r, models.ErrCodeFieldExtraction)
			slog.Debug("field strategy panicked", "field", field, "strategy", s.name, "panic", r)
			var zero T
			v, ok = zero, false
		}
	}()
	return s.fn(doc)
}

// Extractor fills a ProductRecord from a Document. It holds no per-run
// state and is safe for concurrent use.
type Extractor struct {
	titles       []strategy[string]
	bullets      []strategy[[]string]
	specs        []strategy[map[string]string]
	colors       []strategy[string]
	descriptions []strategy[string]
}

// New returns an Extractor with the default strategy cascades.
func New() *Extractor {
	return &Extractor{
		titles:       titleStrategies,
		bullets:      bulletStrategies,
		specs:        specStrategies,
		colors:       colorStrategies,
		descriptions: descriptionStrategies,
	}
}

// Extract runs every field cascade against doc and writes the results
// into rec. Fields whose cascade finds nothing keep their sentinel.
func (e *Extractor) Extract(doc *Document, rec *models.ProductRecord, tr *Trace) {
	if v, ok := cascade("title", doc, tr, e.titles); ok {
		rec.Title = v
	}
	if v, ok := cascade("bullet_points", doc, tr, e.bullets); ok {
		rec.BulletPoints = v
	}
	if v, ok := cascade("specifications", doc, tr, e.specs); ok {
		rec.Specifications = v
	}
	if v, ok := cascade("color", doc, tr, e.colors); ok {
		rec.Color = v
	}
	if v, ok := cascade("description", doc, tr, e.descriptions); ok {
		rec.Description = v
	}
}
