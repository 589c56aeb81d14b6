package scraper

import (
	"time"

	"github.com/use-agent/shelfscan/models"
)

// Result is the outcome of one Extract call.
type Result struct {
	Success bool

	// Record is never nil. On failure it holds sentinels and the trace.
	Record *models.ProductRecord

	// Err is set when Success is false.
	Err *models.ScrapeError

	// Mode is the fetch mode that produced the document ("plain" or
	// "rendered"); empty when the fetch failed.
	Mode     string
	FinalURL string

	FetchDuration   time.Duration
	ExtractDuration time.Duration
}
