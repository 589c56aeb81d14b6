package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/scraper"
)

// DefaultURL is extracted when no URL argument is given.
const DefaultURL = "https://www.mercadolivre.com.br/panificadora-19-programas-gallant-600w-branca/p/MLB44589848"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Extractor runs one product extraction.
type Extractor interface {
	Extract(ctx context.Context, url string, captureScreenshots bool) *scraper.Result
}

// Main represents the program.
type Main struct {
	// Config is loaded from the environment when nil.
	Config *config.Config

	// NewExtractor builds the extractor and returns its cleanup func.
	NewExtractor func(cfg *config.Config, render bool) (Extractor, func(), error)
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{NewExtractor: buildExtractor}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URL         string `arg:"" optional:"" help:"Product page URL."`
	JSON        bool   `help:"Print compact JSON only."`
	Quiet       bool   `short:"q" help:"Suppress progress logs and the summary."`
	Save        string `placeholder:"FILE" type:"path" help:"Also write the record as indented JSON to FILE."`
	Screenshots bool   `help:"Capture page screenshots (requires rendering)."`
	Render      bool   `help:"Always fetch with the headless browser."`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("shelfscan-cli"),
		kong.Description("Extract product data (title, bullets, specifications, color, description) from a product page"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}
	if cli.URL == "" {
		cli.URL = DefaultURL
	}

	level := slog.LevelInfo
	if cli.Quiet || cli.JSON {
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	cfg := m.Config
	if cfg == nil {
		cfg = config.Load()
	}
	if cli.Render || cli.Screenshots {
		cfg.Fetch.EnableRendering = true
	}

	ext, cleanup, err := m.NewExtractor(cfg, cli.Render)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("extracting", "url", cli.URL, "render", cli.Render, "screenshots", cli.Screenshots)
	res := ext.Extract(ctx, cli.URL, cli.Screenshots)

	if cli.Save != "" {
		if err := save(cli.Save, res); err != nil {
			fmt.Fprintf(stderr, "could not save %s: %v\n", cli.Save, err)
		} else {
			slog.Info("record saved", "path", cli.Save)
		}
	}

	if cli.JSON || cli.Quiet {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(res.Record); err != nil {
			return err
		}
	} else {
		if err := printReport(stdout, res); err != nil {
			return err
		}
	}

	if !res.Success && res.Err != nil {
		return fmt.Errorf("extraction failed: %s: %s", res.Err.Code, res.Err.Message)
	}
	return nil
}

func buildExtractor(cfg *config.Config, render bool) (Extractor, func(), error) {
	stack, err := scraper.Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	if !render {
		return stack.Scraper(), stack.Close, nil
	}
	s, err := stack.RenderedScraper()
	if err != nil {
		stack.Close()
		return nil, nil, err
	}
	return s, stack.Close, nil
}

func save(path string, res *scraper.Result) error {
	data, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
