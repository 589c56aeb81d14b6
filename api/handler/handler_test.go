package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/cache"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/scraper"
	"github.com/use-agent/shelfscan/screenshot"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fn    func(url string, shots bool) *scraper.Result
}

func (f *fakeExtractor) Extract(_ context.Context, url string, shots bool) *scraper.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(url, shots)
}

func (f *fakeExtractor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func succeed(url string, _ bool) *scraper.Result {
	rec := models.NewProductRecord()
	rec.Title = "Panificadora " + url[strings.LastIndex(url, "/")+1:]
	return &scraper.Result{Success: true, Record: rec, Mode: "plain", FinalURL: url}
}

func fail(string, bool) *scraper.Result {
	rec := models.NewProductRecord()
	rec.DiagnosticTrace = []string{"2026-10-16T12:00:00Z [ERROR] fetch failed: NETWORK_ERROR: request timed out"}
	return &scraper.Result{
		Record: rec,
		Err:    models.NewScrapeError(models.ErrCodeNetwork, "request timed out", nil),
	}
}

func newService(fn func(string, bool) *scraper.Result) (*Service, *fakeExtractor) {
	fx := &fakeExtractor{fn: fn}
	return &Service{
		Extractor:      fx,
		AllowedDomains: []string{"mercadolivre.com.br"},
		Now:            fixedNow,
	}, fx
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

const productURL = "https://www.mercadolivre.com.br/panificadora/p/MLB44589848"

func TestScrape_Success(t *testing.T) {
	t.Parallel()

	// Given
	svc, _ := newService(succeed)
	r := gin.New()
	r.POST("/scrape", Scrape(svc))

	// When
	w := postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL})

	// Then
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ScrapeResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Panificadora MLB44589848", resp.Data.Title)
	assert.Equal(t, "2026-10-16T12:00:00Z", resp.Timestamp)
	assert.Contains(t, resp.Message, "1/5 fields")
}

func TestScrape_FetchFailureIsStructured200(t *testing.T) {
	t.Parallel()

	svc, _ := newService(fail)
	r := gin.New()
	r.POST("/scrape", Scrape(svc))

	w := postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ScrapeResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrCodeNetwork, resp.Error.Code)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.NotAvailable, resp.Data.Title)
	assert.NotEmpty(t, resp.Data.DiagnosticTrace)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestScrape_ValidationErrors(t *testing.T) {
	t.Parallel()

	svc, fx := newService(succeed)
	r := gin.New()
	r.POST("/scrape", Scrape(svc))

	tests := []struct {
		name string
		body any
	}{
		{"missing url", map[string]any{}},
		{"not a url", models.ScrapeRequest{URL: "ftp://x"}},
		{"domain not allowed", models.ScrapeRequest{URL: "https://www.amazon.com.br/dp/B0"}},
		{"lookalike domain", models.ScrapeRequest{URL: "https://evilmercadolivre.com.br/p/MLB1"}},
	}
	for _, tt := range tests {
		w := postJSON(r, "/scrape", tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
		assert.Contains(t, w.Body.String(), models.ErrCodeInvalidInput, tt.name)
	}
	assert.Equal(t, 0, fx.count())
}

func TestScrape_CacheHit(t *testing.T) {
	t.Parallel()

	svc, fx := newService(succeed)
	c := cache.New(10)
	t.Cleanup(c.Stop)
	svc.Cache = c
	r := gin.New()
	r.POST("/scrape", Scrape(svc))

	first := decode[models.ScrapeResponse](t, postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL, MaxAge: 60_000}))
	second := decode[models.ScrapeResponse](t, postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL, MaxAge: 60_000}))

	assert.Equal(t, "miss", first.CacheStatus)
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, 1, fx.count())
}

func TestScrape_RewritesScreenshotPaths(t *testing.T) {
	t.Parallel()

	// Given a file store and an extraction that saved one capture
	store, err := screenshot.NewFileStore(t.TempDir(), fixedNow)
	require.NoError(t, err)
	svc, _ := newService(func(url string, _ bool) *scraper.Result {
		res := succeed(url, true)
		res.Record.Screenshots[models.ShotFullPage] = filepath.Join("screenshots", "20261016_120000_abcd1234_full_page.png")
		return res
	})
	svc.Store = store
	r := gin.New()
	r.POST("/scrape", Scrape(svc))

	// When
	resp := decode[models.ScrapeResponse](t, postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL, CaptureScreenshots: true}))

	// Then
	assert.Equal(t, "/api/v1/screenshots/20261016_120000_abcd1234_full_page.png", resp.Data.Screenshots[models.ShotFullPage])
}

func TestScreenshots_ListAndDownload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := screenshot.NewFileStore(dir, fixedNow)
	require.NoError(t, err)
	path, err := store.Save(models.ShotFooter, []byte("\x89PNG"))
	require.NoError(t, err)
	name := filepath.Base(path)

	svc, _ := newService(succeed)
	svc.Store = store
	r := gin.New()
	r.GET("/screenshots", ListScreenshots(svc))
	r.GET("/screenshots/:name", GetScreenshot(svc))

	list := decode[models.ScreenshotListResponse](t, get(r, "/screenshots"))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, ScreenshotPathPrefix+name, list.Screenshots[0].URL)

	w := get(r, "/screenshots/"+name)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/screenshots/missing.png").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/screenshots/..secret.png").Code)
}

func TestScreenshots_DisabledInBase64Mode(t *testing.T) {
	t.Parallel()

	svc, _ := newService(succeed)
	r := gin.New()
	r.GET("/screenshots", ListScreenshots(svc))

	assert.Equal(t, http.StatusNotFound, get(r, "/screenshots").Code)
}

func TestBatch_RunsAllURLs(t *testing.T) {
	t.Parallel()

	// Given
	svc, _ := newService(func(url string, shots bool) *scraper.Result {
		if strings.HasSuffix(url, "bad") {
			return fail(url, shots)
		}
		return succeed(url, shots)
	})
	store := NewBatchStore()
	t.Cleanup(store.Stop)
	r := gin.New()
	r.POST("/batch/scrape", PostBatch(svc, store))
	r.GET("/batch/:id", GetBatch(svc, store))

	// When
	w := postJSON(r, "/batch/scrape", models.BatchRequest{URLs: []string{productURL + "1", productURL + "bad"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	created := decode[models.BatchResponse](t, w)

	// Then
	var status models.BatchStatusResponse
	require.Eventually(t, func() bool {
		status = decode[models.BatchStatusResponse](t, get(r, "/batch/"+created.ID))
		return status.Status != models.BatchProcessing
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.BatchPartial, status.Status)
	assert.Equal(t, 2, status.Completed)
	require.Len(t, status.Results, 2)
	assert.True(t, status.Results[0].Success)
	assert.False(t, status.Results[1].Success)
}

func TestBatch_RejectsDisallowedURL(t *testing.T) {
	t.Parallel()

	svc, _ := newService(succeed)
	store := NewBatchStore()
	t.Cleanup(store.Stop)
	r := gin.New()
	r.POST("/batch/scrape", PostBatch(svc, store))

	w := postJSON(r, "/batch/scrape", models.BatchRequest{URLs: []string{productURL, "https://example.com/x"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "urls[1]")
}

func TestBatch_UnknownID(t *testing.T) {
	t.Parallel()

	svc, _ := newService(succeed)
	store := NewBatchStore()
	t.Cleanup(store.Stop)
	r := gin.New()
	r.GET("/batch/:id", GetBatch(svc, store))

	assert.Equal(t, http.StatusNotFound, get(r, "/batch/nope").Code)
}

func TestLocalScrape(t *testing.T) {
	t.Parallel()

	svc, fx := newService(fail)
	r := gin.New()
	r.POST("/scrape", LocalScrape(svc))

	// Wrong content type
	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader("url="+productURL))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Wrong host, look-alike hosts, wrong scheme
	for _, u := range []string{
		"https://produto.mercadolivre.com.br/MLB-1",
		"https://www.mercadolivre.com.br.attacker.example/p/1",
		"https://www.mercadolivre.com.br@attacker.example/p/1",
		"http://www.mercadolivre.com.br/p/MLB1",
	} {
		w = postJSON(r, "/scrape", models.ScrapeRequest{URL: u})
		assert.Equal(t, http.StatusBadRequest, w.Code, u)
	}
	assert.Zero(t, fx.count())

	// Extraction failure
	w = postJSON(r, "/scrape", models.ScrapeRequest{URL: productURL})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decode[models.ScrapeResponse](t, w).Success)
	assert.Equal(t, 1, fx.count())
}

func TestStatus_CountsScreenshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := screenshot.NewFileStore(dir, fixedNow)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))

	svc, _ := newService(succeed)
	svc.Store = store
	r := gin.New()
	r.GET("/status", Status(svc))

	resp := decode[models.StatusResponse](t, get(r, "/status"))
	assert.True(t, resp.Online)
	assert.Equal(t, 1, resp.Screenshots)
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	allowed := []string{"mercadolivre.com.br"}
	assert.NoError(t, validateURL("https://www.mercadolivre.com.br/p/MLB1", allowed))
	assert.NoError(t, validateURL("https://mercadolivre.com.br/p/MLB1", allowed))
	assert.NoError(t, validateURL("https://example.com", nil))
	assert.ErrorIs(t, validateURL("https://mercadolivre.com.br.evil.io/", allowed), errDomainNotAllowed)
	assert.Error(t, validateURL("mercadolivre.com.br/p/MLB1", allowed))
}
