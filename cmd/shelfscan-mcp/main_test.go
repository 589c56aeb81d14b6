package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/models"
)

func callTool(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func sampleResponse(url string) *models.ScrapeResponse {
	rec := models.NewProductRecord()
	rec.Title = "Panificadora Gallant 600W"
	rec.Specifications = map[string]string{"Potência": "600W", "Marca": "Gallant"}
	return &models.ScrapeResponse{Success: true, URL: url, FetchMode: "plain", Data: rec}
}

func TestExtractProduct_FormatsRecord(t *testing.T) {
	var gotAuth string
	var gotReq models.ScrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(sampleResponse(gotReq.URL))
	}))
	defer srv.Close()

	h := handleExtractProduct(srv.URL, "tok")
	res, err := h(context.Background(), callTool(map[string]any{
		"url":                 "https://www.mercadolivre.com.br/p/MLB1",
		"capture_screenshots": true,
	}))
	require.NoError(t, err)

	assert.False(t, res.IsError)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.True(t, gotReq.CaptureScreenshots)

	text := resultText(t, res)
	assert.Contains(t, text, "Title: Panificadora Gallant 600W")
	assert.Contains(t, text, "- Marca: Gallant\n- Potência: 600W")
	assert.Contains(t, text, "Fetch mode: plain")
}

func TestExtractProduct_FailureIsToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(models.ScrapeResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeNetwork, Message: "HTTP 403"},
		})
	}))
	defer srv.Close()

	res, err := handleExtractProduct(srv.URL, "")(context.Background(), callTool(map[string]any{"url": "https://x"}))
	require.NoError(t, err)

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "[NETWORK_ERROR] HTTP 403")
}

func TestExtractProduct_MissingURL(t *testing.T) {
	res, err := handleExtractProduct("http://unused", "")(context.Background(), callTool(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestBatchExtract_PollsUntilDone(t *testing.T) {
	pollInterval = 10 * time.Millisecond
	defer func() { pollInterval = 2 * time.Second }()

	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/batch/scrape", func(w http.ResponseWriter, r *http.Request) {
		var req models.BatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(models.BatchResponse{ID: "batch-1", Status: models.BatchProcessing, Total: len(req.URLs)})
	})
	mux.HandleFunc("GET /api/v1/batch/batch-1", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) < 2 {
			_ = json.NewEncoder(w).Encode(models.BatchStatusResponse{ID: "batch-1", Status: models.BatchProcessing, Total: 2})
			return
		}
		_ = json.NewEncoder(w).Encode(models.BatchStatusResponse{
			ID:        "batch-1",
			Status:    models.BatchPartial,
			Completed: 2,
			Total:     2,
			Results: []*models.ScrapeResponse{
				sampleResponse("https://a"),
				{URL: "https://b", Error: &models.ErrorDetail{Code: models.ErrCodeNetwork, Message: "extraction timed out"}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := handleBatchExtract(srv.URL, "")(context.Background(), callTool(map[string]any{
		"urls": []any{"https://a", "https://b"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	assert.Contains(t, text, "Batch batch-1: partial (2/2 completed)")
	assert.Contains(t, text, "--- [1] https://a ---")
	assert.Contains(t, text, "--- [2] FAILED: extraction timed out (https://b) ---")
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}
