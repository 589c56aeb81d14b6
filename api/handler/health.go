package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscan/models"
)

// Version is reported by the info and health endpoints.
const Version = "1.0.0"

// Info returns a handler for GET /api/v1/.
func Info() gin.HandlerFunc {
	resp := models.InfoResponse{
		Name:    "shelfscan",
		Version: Version,
		Endpoints: map[string]string{
			"GET /api/v1/":                  "API information",
			"GET /api/v1/health":            "health and browser session usage",
			"GET /api/v1/status":            "online flag and stored screenshot count",
			"POST /api/v1/scrape":           "extract one product page",
			"POST /api/v1/batch/scrape":     "extract up to 50 product pages asynchronously",
			"GET /api/v1/batch/:id":         "batch job status and results",
			"GET /api/v1/screenshots":       "list stored screenshots",
			"GET /api/v1/screenshots/:name": "download a stored screenshot",
			"GET /metrics":                  "Prometheus metrics",
		},
		Auth: "Authorization: Bearer <token> or X-API-Key: <token>",
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, resp)
	}
}

// Health returns a handler for GET /api/v1/health.
//
// Degrades status when more than 80% of browser sessions are in use. stats
// may be nil when rendering is disabled.
func Health(stats BrowserStatser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bs models.BrowserStats
		if stats != nil {
			bs = stats.Stats()
		}

		status := "healthy"
		if bs.MaxSessions > 0 && bs.ActiveSessions > int(float64(bs.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: bs,
			Version:      Version,
		})
	}
}

// Status returns a handler for GET /api/v1/status.
func Status(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := 0
		if svc.Store != nil {
			count = svc.Store.Count()
		}
		c.JSON(http.StatusOK, models.StatusResponse{
			Online:      true,
			Timestamp:   svc.timestamp(),
			Screenshots: count,
		})
	}
}

// NotFound answers unknown routes with a JSON hint instead of gin's
// plain-text 404.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": models.ErrorDetail{
				Code:    models.ErrCodeNotFound,
				Message: "endpoint not found: " + c.Request.Method + " " + c.Request.URL.Path,
			},
			"hint": "GET /api/v1/ lists the available endpoints",
		})
	}
}
