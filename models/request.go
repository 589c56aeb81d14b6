package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the product page to extract. Required.
	URL string `json:"url" binding:"required"`

	// CaptureScreenshots forces a rendered fetch and captures the labelled
	// screenshot set. Default: false.
	CaptureScreenshots bool `json:"capture_screenshots,omitempty"`

	// WebhookURL, when set, receives the response as a signed
	// product.extracted / product.failed event after the request completes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// MaxAge enables the response cache: a cached response younger than
	// MaxAge milliseconds is returned instead of a fresh extraction.
	// 0 disables caching for this request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.MaxAge < 0 {
		r.MaxAge = 0
	}
}
