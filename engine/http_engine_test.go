package engine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/engine"
	"github.com/use-agent/shelfscan/models"
)

func TestHTTPEngine_SendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	// Given
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>ok</h1></body></html>"))
	}))
	t.Cleanup(srv.Close)

	// When
	res, err := engine.NewHTTPEngine().Fetch(context.Background(), &engine.FetchRequest{URL: srv.URL + "/MLB-1"})

	// Then
	require.NoError(t, err)
	assert.Equal(t, engine.ModePlain, res.Mode)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.HTML, "<h1>ok</h1>")
	assert.Equal(t, engine.DesktopChromeUA, got.Get("User-Agent"))
	assert.Contains(t, got.Get("Accept-Language"), "pt-BR")
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
	assert.Equal(t, srv.URL+"/", got.Get("Referer"))
}

func TestHTTPEngine_Non2xxIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := engine.NewHTTPEngine().Fetch(context.Background(), &engine.FetchRequest{URL: srv.URL})

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeNetwork, se.Code)
	assert.Contains(t, se.Message, "HTTP 403")
}

func TestHTTPEngine_RejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	_, err := engine.NewHTTPEngine().Fetch(context.Background(), &engine.FetchRequest{URL: srv.URL})

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeNetwork, se.Code)
}

func TestHTTPEngine_TimeoutIsNetworkError(t *testing.T) {
	t.Parallel()

	// Given a server slower than the client timeout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	// When
	e := engine.NewHTTPEngine(engine.WithHTTPTimeout(100 * time.Millisecond))
	_, err := e.Fetch(context.Background(), &engine.FetchRequest{URL: srv.URL})

	// Then
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeNetwork, se.Code)
	assert.Equal(t, "request timed out", se.Message)
}

func TestHTTPEngine_DecodesDeclaredCharset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body><p>Descri\xe7\xe3o</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	res, err := engine.NewHTTPEngine().Fetch(context.Background(), &engine.FetchRequest{URL: srv.URL})

	require.NoError(t, err)
	assert.Contains(t, res.HTML, "Descrição")
}

func TestHTTPEngine_CallerHeadersOverrideDefaults(t *testing.T) {
	t.Parallel()

	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := engine.NewHTTPEngine().Fetch(context.Background(), &engine.FetchRequest{
		URL:     srv.URL,
		Headers: map[string]string{"Referer": "https://www.google.com/"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/", referer)
}
