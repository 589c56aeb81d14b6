package models

// ScrapeResponse is the envelope for every extraction response.
type ScrapeResponse struct {
	// Success is true only when the fetch succeeded. Missing fields do not
	// make a run unsuccessful.
	Success bool `json:"success"`

	// Message is a short human-readable summary of the outcome.
	Message string `json:"message"`

	// Data is the extracted record. On a failed fetch it still carries the
	// sentinel values and the diagnostic trace.
	Data *ProductRecord `json:"data,omitempty"`

	// Timestamp is the RFC3339 completion time.
	Timestamp string `json:"timestamp"`

	// URL echoes the requested page.
	URL string `json:"url,omitempty"`

	// FetchMode is "plain" or "rendered".
	FetchMode string `json:"fetch_mode,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing *TimingInfo `json:"timing,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	FetchMs      int64 `json:"fetch_ms"`
	ExtractionMs int64 `json:"extraction_ms"`
}

// InfoResponse is the response for GET /api/v1/.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	Auth      string            `json:"auth"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	Version      string       `json:"version"`
}

// BrowserStats reports rendered-session usage.
type BrowserStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}

// StatusResponse is the response for GET /api/v1/status.
type StatusResponse struct {
	Online      bool   `json:"online"`
	Timestamp   string `json:"timestamp"`
	Screenshots int    `json:"screenshots"`
}

// ScreenshotInfo describes one stored screenshot file.
type ScreenshotInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// ScreenshotListResponse is the response for GET /api/v1/screenshots.
type ScreenshotListResponse struct {
	Total       int              `json:"total"`
	Screenshots []ScreenshotInfo `json:"screenshots"`
}
