package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/scraper"
)

var rule = strings.Repeat("=", 80)

// printReport writes the indented record followed by a human summary.
func printReport(w io.Writer, res *scraper.Result) error {
	rec := res.Record

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	fmt.Fprintf(w, "\n%s\nEXTRACTED DATA (JSON):\n%s\n", rule, rule)
	if err := enc.Encode(rec); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\nSUMMARY:\n%s\n", rule, rule)
	if res.Mode != "" {
		fmt.Fprintf(w, "Fetch mode: %s\n", res.Mode)
	}
	fmt.Fprintf(w, "Title: %s\n", clip(rec.Title, 60))

	fmt.Fprintf(w, "Bullet points: %d found\n", len(rec.BulletPoints))
	for i, bp := range rec.BulletPoints {
		fmt.Fprintf(w, "  %d. %s\n", i+1, clip(bp, 60))
	}

	fmt.Fprintf(w, "\nSpecifications: %d found\n", len(rec.Specifications))
	for _, k := range slices.Sorted(maps.Keys(rec.Specifications)) {
		fmt.Fprintf(w, "  - %s: %s\n", k, rec.Specifications[k])
	}

	fmt.Fprintf(w, "\nColor: %s\n", rec.Color)
	fmt.Fprintf(w, "Description: %d characters\n", len([]rune(rec.Description)))
	if rec.Description != models.NotAvailable {
		fmt.Fprintf(w, "First 100 characters: %s\n", clip(rec.Description, 100))
	}

	if len(rec.Screenshots) > 0 {
		fmt.Fprintf(w, "\nScreenshots: %d\n", len(rec.Screenshots))
		for _, label := range slices.Sorted(maps.Keys(rec.Screenshots)) {
			fmt.Fprintf(w, "  - %s: %s\n", label, clip(rec.Screenshots[label], 80))
		}
	}

	if !res.Success && res.Err != nil {
		fmt.Fprintf(w, "\nError: %s: %s\n", res.Err.Code, res.Err.Message)
	}
	fmt.Fprintln(w, rule)
	return nil
}

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
