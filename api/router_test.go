package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/shelfscan/api"
	"github.com/use-agent/shelfscan/api/handler"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/metrics"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/scraper"
)

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, url string, _ bool) *scraper.Result {
	return &scraper.Result{Success: true, Record: models.NewProductRecord(), FinalURL: url}
}

func newDeps(t *testing.T) api.Deps {
	t.Helper()
	cfg := config.FromEnv()
	cfg.Server.Mode = "test"
	cfg.Auth.Tokens = []string{"secret-token"}

	batches := handler.NewBatchStore()
	t.Cleanup(batches.Stop)

	return api.Deps{
		Config: cfg,
		Service: &handler.Service{
			Extractor:      stubExtractor{},
			AllowedDomains: cfg.Domains.Allowed,
		},
		Batches:   batches,
		StartTime: time.Now(),
	}
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := api.NewRouter(newDeps(t))

	for _, path := range []string{"/api/v1/", "/api/v1/health", "/api/v1/status"} {
		w := serve(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_ScrapeRequiresToken(t *testing.T) {
	r := api.NewRouter(newDeps(t))
	body := `{"url":"https://www.mercadolivre.com.br/p/MLB1"}`
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	w := serve(r, http.MethodPost, "/api/v1/scrape", body, jsonHeader)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/scrape", body, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer secret-token",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	d := newDeps(t)
	d.Metrics = metrics.New()
	d.Service.Metrics = d.Metrics
	r := api.NewRouter(d)

	w := serve(r, http.MethodPost, "/api/v1/scrape", `{"url":"https://www.mercadolivre.com.br/p/MLB1"}`, map[string]string{
		"Content-Type": "application/json",
		"X-API-Key":    "secret-token",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shelfscan_extractions_total{mode="none",outcome="success"} 1`)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	r := api.NewRouter(newDeps(t))

	w := serve(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	r := api.NewRouter(newDeps(t))

	w := serve(r, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeNotFound)
	assert.Contains(t, w.Body.String(), `"hint"`)
}

func TestWebhookRouter_CORSPreflight(t *testing.T) {
	h := api.NewWebhookRouter(newDeps(t))

	w := serve(h, http.MethodOptions, "/scrape", "", map[string]string{
		"Origin":                        "https://n8n.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhookRouter_HealthWithoutToken(t *testing.T) {
	h := api.NewWebhookRouter(newDeps(t))

	w := serve(h, http.MethodGet, "/health", "", map[string]string{"Origin": "https://n8n.example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
