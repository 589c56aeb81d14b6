package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/models"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request (URL shape, allowed domain).
//  2. Cache lookup when max_age is set.
//  3. Extract; the run is detached from the client connection and bounded
//     by the scraper's own timeout.
//  4. Respond 200 whether or not the fetch succeeded.
//  5. Cache store, webhook delivery, screenshot cleanup.
func Scrape(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err.Error(), svc.timestamp())
			return
		}
		req.Defaults()

		if err := validateURL(req.URL, svc.AllowedDomains); err != nil {
			invalidInput(c, err.Error(), svc.timestamp())
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL, req.CaptureScreenshots)
		if svc.Cache != nil && req.MaxAge > 0 {
			cached, hit := svc.Cache.Get(cacheKey, req.MaxAge)
			svc.Metrics.ObserveCache(hit)
			if hit {
				cached.CacheStatus = "hit"
				cached.Timing = &models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Extract ──────────────────────────────────────────────
		resp := svc.run(context.WithoutCancel(c.Request.Context()), req.URL, req.CaptureScreenshots)

		// ── 4. Cache store ──────────────────────────────────────────
		if svc.Cache != nil && req.MaxAge > 0 {
			resp.CacheStatus = "miss"
			if resp.Success {
				svc.Cache.Set(cacheKey, resp)
			}
		}

		c.JSON(http.StatusOK, resp)

		// ── 5. After the response ───────────────────────────────────
		svc.notify(req.WebhookURL, req.WebhookSecret, resp)
		go svc.cleanupScreenshots()
	}
}
