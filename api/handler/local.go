package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscan/models"
)

// The webhook server only accepts https URLs on localHost.
const (
	LocalURLPrefix = "https://" + localHost
	localHost      = "www.mercadolivre.com.br"
)

// isLocalTarget reports whether raw is an https URL whose host is exactly
// localHost, with no userinfo.
func isLocalTarget(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.User == nil && strings.EqualFold(u.Host, localHost)
}

// LocalHealth returns a handler for GET /health on the webhook server.
func LocalHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "shelfscan-webhook",
			"version": Version,
		})
	}
}

// LocalTest returns a handler for GET /test describing how to call /scrape.
func LocalTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "webhook server is running",
			"usage": gin.H{
				"endpoint": "/scrape",
				"method":   http.MethodPost,
				"example_request": models.ScrapeRequest{
					URL: LocalURLPrefix + "/panificadora-19-programas-gallant-600w-branca/p/MLB44589848",
				},
			},
		})
	}
}

// LocalScrape returns a handler for POST /scrape on the webhook server. It
// has no token check; a failed extraction answers 500 so workflow tools
// take their error branch.
func LocalScrape(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			invalidInput(c, "Content-Type must be application/json", svc.timestamp())
			return
		}

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, "url is required", svc.timestamp())
			return
		}
		if !isLocalTarget(req.URL) {
			invalidInput(c, "url must start with "+LocalURLPrefix, svc.timestamp())
			return
		}

		resp := svc.run(context.WithoutCancel(c.Request.Context()), req.URL, req.CaptureScreenshots)
		status := http.StatusOK
		if !resp.Success {
			status = http.StatusInternalServerError
		}
		c.JSON(status, resp)

		svc.notify(req.WebhookURL, req.WebhookSecret, resp)
		go svc.cleanupScreenshots()
	}
}
