package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/shelfscan/models"
)

// pollInterval is how often batch status is checked.
var pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("SHELFSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8000"
	}
	apiToken := os.Getenv("SHELFSCAN_API_TOKEN")
	if apiToken == "" {
		fmt.Fprintln(os.Stderr, "SHELFSCAN_API_TOKEN is not set; requests will fail if the API enforces tokens")
	}

	s := server.NewMCPServer(
		"shelfscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Extract structured product data (title, bullet points, specifications, color, description) from a product page. Falls back to a headless browser for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL"),
		),
		mcp.WithBoolean("capture_screenshots",
			mcp.Description("Capture full-page and section screenshots (default: false)"),
		),
	)
	s.AddTool(extractTool, handleExtractProduct(apiURL, apiToken))

	batchTool := mcp.NewTool("batch_extract",
		mcp.WithDescription("Extract product data from up to 50 product pages in parallel."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of product page URLs"),
		),
	)
	s.AddTool(batchTool, handleBatchExtract(apiURL, apiToken))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the shelfscan API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiToken, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiToken, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			if apiToken != "" {
				req.Header.Set("Authorization", "Bearer "+apiToken)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != models.BatchProcessing {
				return body, nil
			}
		}
	}
}

func handleExtractProduct(apiURL, apiToken string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ScrapeRequest{
			URL:                url,
			CaptureScreenshots: request.GetBool("capture_screenshots", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiToken, "/api/v1/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ScrapeResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "extraction failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Source: %s\nFetch mode: %s\n\n", resp.URL, resp.FetchMode)
		writeRecord(&sb, resp.Data)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleBatchExtract(apiURL, apiToken string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiToken, "/api/v1/batch/scrape", models.BatchRequest{URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var batchResp models.BatchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if batchResp.ID == "" {
			return mcp.NewToolResultError("batch job creation failed: " + string(respBody)), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiToken, "/api/v1/batch/"+batchResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var status models.BatchStatusResponse
		if err := json.Unmarshal(resultBody, &status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch status: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", status.ID, status.Status, status.Completed, status.Total)

		for i, r := range status.Results {
			if r == nil {
				fmt.Fprintf(&sb, "--- [%d] missing result ---\n\n", i+1)
				continue
			}
			if !r.Success {
				errMsg := "unknown error"
				if r.Error != nil {
					errMsg = r.Error.Message
				}
				fmt.Fprintf(&sb, "--- [%d] FAILED: %s (%s) ---\n\n", i+1, errMsg, r.URL)
				continue
			}
			fmt.Fprintf(&sb, "--- [%d] %s ---\n", i+1, r.URL)
			writeRecord(&sb, r.Data)
			sb.WriteString("\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

// writeRecord renders a record as plain text for the model.
func writeRecord(sb *strings.Builder, rec *models.ProductRecord) {
	if rec == nil {
		sb.WriteString("(no data)\n")
		return
	}
	fmt.Fprintf(sb, "Title: %s\nColor: %s\n", rec.Title, rec.Color)

	if len(rec.BulletPoints) > 0 {
		sb.WriteString("\nBullet points:\n")
		for _, bp := range rec.BulletPoints {
			fmt.Fprintf(sb, "- %s\n", bp)
		}
	}
	if len(rec.Specifications) > 0 {
		sb.WriteString("\nSpecifications:\n")
		for _, k := range slices.Sorted(maps.Keys(rec.Specifications)) {
			fmt.Fprintf(sb, "- %s: %s\n", k, rec.Specifications[k])
		}
	}
	fmt.Fprintf(sb, "\nDescription: %s\n", rec.Description)

	if len(rec.Screenshots) > 0 {
		sb.WriteString("\nScreenshots:\n")
		for _, label := range slices.Sorted(maps.Keys(rec.Screenshots)) {
			fmt.Fprintf(sb, "- %s: %s\n", label, rec.Screenshots[label])
		}
	}
}
