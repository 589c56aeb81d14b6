package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/use-agent/shelfscan/models"
)

const defaultURL = "https://www.mercadolivre.com.br/panificadora-19-programas-gallant-600w-branca/p/MLB44589848"

type cli struct {
	URLs   []string `arg:"" optional:"" help:"Product pages to benchmark."`
	APIURL string   `name:"api-url" default:"http://localhost:8000" help:"shelfscan API base URL."`
	Token  string   `env:"SHELFSCAN_API_TOKEN" help:"API token for authenticated requests."`
	Runs   int      `default:"3" help:"Number of runs per URL for averaging."`
	Output string   `default:"benchmark-results.json" help:"JSON output file path."`
}

// --- Benchmark result types ---

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	FetchMs      int64  `json:"fetch_ms"`
	ExtractionMs int64  `json:"extraction_ms"`
	FetchMode    string `json:"fetch_mode"`
	FilledFields int    `json:"filled_fields"`
	Bullets      int    `json:"bullets"`
	Specs        int    `json:"specs"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs      float64 `json:"total_ms"`
	FetchMs      float64 `json:"fetch_ms"`
	ExtractionMs float64 `json:"extraction_ms"`
	FilledFields float64 `json:"filled_fields"`
	RenderedRate float64 `json:"rendered_rate"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("benchmark"),
		kong.Description("Measure extraction latency and field coverage against a running shelfscan API"),
	)
	if len(c.URLs) == 0 {
		c.URLs = []string{defaultURL}
	}

	fmt.Println("=== shelfscan Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", c.APIURL)
	fmt.Printf("Runs/URL:  %d\n", c.Runs)
	fmt.Printf("Output:    %s\n", c.Output)
	fmt.Println()

	if err := checkAPI(c.APIURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", c.APIURL, err)
		fmt.Fprintf(os.Stderr, "Make sure shelfscan is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     c.APIURL,
		RunsPerURL: c.Runs,
	}

	client := &http.Client{Timeout: 120 * time.Second}
	for _, u := range c.URLs {
		fmt.Printf("Benchmarking %s ...\n", u)
		ur := urlResult{URL: u}

		for i := 1; i <= c.Runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, c.Runs)
			rr := benchmarkURL(client, c.APIURL, c.Token, u, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %s  %d/5 fields\n", rr.TotalMs, rr.FetchMode, rr.FilledFields)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(c.Output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", c.Output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(client *http.Client, apiURL, token, url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(models.ScrapeRequest{URL: url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr models.ScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.FetchMode = sr.FetchMode
	if sr.Timing != nil {
		rr.TotalMs = sr.Timing.TotalMs
		rr.FetchMs = sr.Timing.FetchMs
		rr.ExtractionMs = sr.Timing.ExtractionMs
	}
	if sr.Data != nil {
		rr.FilledFields = sr.Data.FilledFields()
		rr.Bullets = len(sr.Data.BulletPoints)
		rr.Specs = len(sr.Data.Specifications)
	}
	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount, rendered int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.ExtractionMs += float64(r.ExtractionMs)
		avg.FilledFields += float64(r.FilledFields)
		if r.FetchMode == "rendered" {
			rendered++
		}
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.FetchMs /= n
	avg.ExtractionMs /= n
	avg.FilledFields /= n
	avg.RenderedRate = float64(rendered) / n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tFetch\tFields\tRendered\n")
	fmt.Fprintf(w, "───\t───────────\t─────\t──────\t────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%dms\t%.1f/5\t%.0f%%\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			int64(r.Averages.FetchMs),
			r.Averages.FilledFields,
			r.Averages.RenderedRate*100,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
