package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/use-agent/shelfscan/api/handler"
	"github.com/use-agent/shelfscan/api/middleware"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/metrics"
)

// Deps are the collaborators the routers need.
type Deps struct {
	Config    *config.Config
	Service   *handler.Service
	Batches   *handler.BatchStore
	Browser   handler.BrowserStatser // nil when rendering is disabled
	Metrics   *metrics.Metrics       // nil disables /metrics
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Info, health and status stay outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.NoRoute(handler.NotFound())

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Public.
	v1.GET("/", handler.Info())
	v1.GET("/health", handler.Health(d.Browser, d.StartTime))
	v1.GET("/status", handler.Status(d.Service))

	// Protected group: auth and rate limit.
	protected := v1.Group("")
	if d.Config.Auth.Enabled {
		protected.Use(middleware.Auth(d.Config.Auth.Tokens))
	}
	protected.Use(middleware.RateLimit(d.Config.RateLimit))

	protected.POST("/scrape", handler.Scrape(d.Service))

	protected.POST("/batch/scrape", handler.PostBatch(d.Service, d.Batches))
	protected.GET("/batch/:id", handler.GetBatch(d.Service, d.Batches))

	protected.GET("/screenshots", handler.ListScreenshots(d.Service))
	protected.GET("/screenshots/:name", handler.GetScreenshot(d.Service))

	return r
}

// NewWebhookRouter creates the local webhook server: no token, every
// origin allowed, three routes.
func NewWebhookRouter(d Deps) http.Handler {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.NoRoute(handler.NotFound())

	r.GET("/health", handler.LocalHealth())
	r.GET("/test", handler.LocalTest())
	r.POST("/scrape", handler.LocalScrape(d.Service))

	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	})(r)
}
